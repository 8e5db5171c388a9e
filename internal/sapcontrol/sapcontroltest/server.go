// Package sapcontroltest provides an in-process sapcontrol web service for tests.
package sapcontroltest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/sapcontrol"
)

// State is the data served by the fake service.
type State struct {
	Instances     []sapcontrol.InstanceInfo
	Processes     []sapcontrol.OSProcess
	Properties    []sapcontrol.InstanceProperty
	Parameters    map[string]string
	Components    []sapcontrol.ComponentInfo
	Syslog        []sapcontrol.SyslogItem
	WorkProcesses []sapcontrol.WorkProcess

	// Faults maps an operation name to the faultstring it answers with.
	Faults map[string]string
	// Texts maps an operation name to the text content of its response.
	Texts map[string]string

	// TransitionPolls is the number of GetSystemInstanceList calls an
	// instance stays YELLOW after InstanceStart or InstanceStop.
	TransitionPolls int

	Username string
	Password string
}

type transition struct {
	remaining int
	target    string
}

// Server is a fake sapcontrol endpoint backed by httptest.
type Server struct {
	*httptest.Server

	// OnCall runs after every SOAP operation, outside the server lock.
	OnCall func(op string)

	mu          sync.Mutex
	state       State
	calls       map[string]int
	requests    map[string][]byte
	transitions map[int]*transition
}

// NewServer starts a plain HTTP fake service.
func NewServer(state State) *Server {
	s := newServer(state)
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// NewTLSServer starts a fake service with a self-signed certificate.
func NewTLSServer(state State) *Server {
	s := newServer(state)
	s.Server = httptest.NewTLSServer(http.HandlerFunc(s.handle))
	return s
}

func newServer(state State) *Server {
	if state.Parameters == nil {
		state.Parameters = map[string]string{}
	}
	if state.Faults == nil {
		state.Faults = map[string]string{}
	}
	if state.Texts == nil {
		state.Texts = map[string]string{}
	}
	return &Server{
		state:       state,
		calls:       map[string]int{},
		requests:    map[string][]byte{},
		transitions: map[int]*transition{},
	}
}

// Locate points every endpoint at this server.
func (s *Server) Locate(ep models.InstanceEndpoint, secure bool) string {
	return s.URL + "/?wsdl"
}

// Update mutates the served state under the server lock.
func (s *Server) Update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Calls returns how often an operation was invoked.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// LastRequest returns the body element of the last request for an operation.
func (s *Server) LastRequest(op string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[op]
}

// InstanceStatus returns the dispstatus currently served for an instance number.
func (s *Server) InstanceStatus(nr int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.state.Instances {
		if inst.InstanceNr == nr {
			return inst.DispStatus
		}
	}
	return ""
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user, pass := s.state.Username, s.state.Password
	s.mu.Unlock()
	if user != "" {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="SAPControl"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprintf(w, `<?xml version="1.0"?><definitions xmlns="http://schemas.xmlsoap.org/wsdl/" targetNamespace="%s"/>`, sapcontrol.Namespace)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	op, content, err := sapcontrol.OperationName(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, payload := s.dispatch(op, content)
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(payload)

	if s.OnCall != nil {
		s.OnCall(op)
	}
}

func (s *Server) dispatch(op string, content []byte) (int, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	s.requests[op] = content

	if msg, ok := s.state.Faults[op]; ok {
		return http.StatusInternalServerError, envelope(fault(msg))
	}

	name := op + "Response"
	switch op {
	case "GetSystemInstanceList":
		s.advanceTransitions()
		return ok(name, struct {
			Items []sapcontrol.InstanceInfo `xml:"instance>item"`
		}{s.state.Instances})
	case "GetProcessList":
		return ok(name, struct {
			Items []sapcontrol.OSProcess `xml:"process>item"`
		}{s.state.Processes})
	case "GetInstanceProperties":
		return ok(name, struct {
			Items []sapcontrol.InstanceProperty `xml:"properties>item"`
		}{s.state.Properties})
	case "ABAPGetComponentList":
		return ok(name, struct {
			Items []sapcontrol.ComponentInfo `xml:"component>item"`
		}{s.state.Components})
	case "ABAPReadSyslog":
		return ok(name, struct {
			Items []sapcontrol.SyslogItem `xml:"log>item"`
		}{s.state.Syslog})
	case "ABAPGetSystemWPTable":
		return ok(name, struct {
			Items []sapcontrol.WorkProcess `xml:"workprocess>item"`
		}{s.state.WorkProcesses})
	case "ParameterValue":
		var req struct {
			Parameter string `xml:"parameter"`
		}
		_ = xml.Unmarshal(content, &req)
		value, found := s.state.Parameters[req.Parameter]
		if !found {
			return http.StatusInternalServerError, envelope(fault("Invalid parameter"))
		}
		return ok(name, struct {
			Value string `xml:"value"`
		}{value})
	case "InstanceStart", "InstanceStop":
		var req struct {
			Host string `xml:"host"`
			Nr   int    `xml:"nr"`
		}
		_ = xml.Unmarshal(content, &req)
		if s.state.Texts[op] == "" {
			target := models.DispStatusGreen
			if op == "InstanceStop" {
				target = models.DispStatusGray
			}
			s.beginTransition(req.Nr, target)
		}
	case "StartSystem", "StopSystem", "RestartService":
	default:
		return http.StatusInternalServerError, envelope(fault("Unknown operation " + op))
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<SAPControl:%s>", name)
	_ = xml.EscapeText(&buf, []byte(s.state.Texts[op]))
	fmt.Fprintf(&buf, "</SAPControl:%s>", name)
	return http.StatusOK, envelope(buf.Bytes())
}

func (s *Server) beginTransition(nr int, target string) {
	for i := range s.state.Instances {
		if s.state.Instances[i].InstanceNr != nr {
			continue
		}
		if s.state.TransitionPolls <= 0 {
			s.state.Instances[i].DispStatus = target
			return
		}
		s.state.Instances[i].DispStatus = models.DispStatusYellow
		s.transitions[nr] = &transition{remaining: s.state.TransitionPolls, target: target}
	}
}

func (s *Server) advanceTransitions() {
	for nr, t := range s.transitions {
		if t.remaining > 0 {
			t.remaining--
			continue
		}
		for i := range s.state.Instances {
			if s.state.Instances[i].InstanceNr == nr {
				s.state.Instances[i].DispStatus = t.target
			}
		}
		delete(s.transitions, nr)
	}
}

func ok(name string, body interface{}) (int, []byte) {
	var buf bytes.Buffer
	start := xml.StartElement{Name: xml.Name{Local: "SAPControl:" + name}}
	if err := xml.NewEncoder(&buf).EncodeElement(body, start); err != nil {
		return http.StatusInternalServerError, envelope(fault(err.Error()))
	}
	return http.StatusOK, envelope(buf.Bytes())
}

func fault(msg string) []byte {
	var buf bytes.Buffer
	buf.WriteString("<SOAP-ENV:Fault><faultcode>SOAP-ENV:Server</faultcode><faultstring>")
	_ = xml.EscapeText(&buf, []byte(msg))
	buf.WriteString("</faultstring></SOAP-ENV:Fault>")
	return buf.Bytes()
}

func envelope(body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<SOAP-ENV:Envelope xmlns:SOAP-ENV="%s" xmlns:SAPControl="%s"><SOAP-ENV:Body>`,
		sapcontrol.EnvelopeNamespace, sapcontrol.Namespace)
	buf.Write(body)
	buf.WriteString("</SOAP-ENV:Body></SOAP-ENV:Envelope>")
	return buf.Bytes()
}
