package sapcontrol

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Namespace of the sapcontrol web service.
	Namespace = "urn:SAPControl"
	// EnvelopeNamespace is the SOAP 1.1 envelope namespace.
	EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
)

// Fault is a SOAP fault returned by sapcontrol, e.g. "Invalid parameter".
type Fault struct {
	Code    string `xml:"faultcode"`
	Message string `xml:"faultstring"`
	Actor   string `xml:"faultactor"`
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return fmt.Sprintf("soap fault: %s", f.Message)
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Message)
}

// IsFault reports whether err is a SOAP fault with the given message.
func IsFault(err error, message string) bool {
	var fault *Fault
	if !errors.As(err, &fault) {
		return false
	}
	return strings.TrimSpace(fault.Message) == message
}

type requestEnvelope struct {
	XMLName   xml.Name    `xml:"SOAP-ENV:Envelope"`
	SOAPEnv   string      `xml:"xmlns:SOAP-ENV,attr"`
	SAPCtrlNS string      `xml:"xmlns:SAPControl,attr"`
	Body      requestBody `xml:"SOAP-ENV:Body"`
}

type requestBody struct {
	Content interface{}
}

type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault   *Fault `xml:"Fault"`
	Content []byte `xml:",innerxml"`
}

// EncodeRequest wraps an operation struct into a SOAP envelope.
func EncodeRequest(op interface{}) ([]byte, error) {
	env := requestEnvelope{
		SOAPEnv:   EnvelopeNamespace,
		SAPCtrlNS: Namespace,
		Body:      requestBody{Content: op},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, errors.Wrap(err, "encode soap request")
	}
	return buf.Bytes(), nil
}

/**
 * Decode a SOAP response envelope
 * @param {[]byte} data - Raw HTTP response body
 * @param {interface{}} out - Pointer to the typed response, nil to ignore the content
 * @returns {error} *Fault for SOAP faults, decoding errors otherwise
 */
func DecodeResponse(data []byte, out interface{}) error {
	var env responseEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return errors.Wrap(err, "decode soap envelope")
	}
	if env.Body.Fault != nil {
		return env.Body.Fault
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(env.Body.Content)) == 0 {
		return errors.New("empty soap body")
	}
	if err := xml.Unmarshal(env.Body.Content, out); err != nil {
		return errors.Wrap(err, "decode soap body")
	}
	return nil
}

// OperationName returns the local name of the first element in a SOAP body.
func OperationName(data []byte) (string, []byte, error) {
	var env struct {
		Body struct {
			Content []byte `xml:",innerxml"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(data, &env); err != nil {
		return "", nil, errors.Wrap(err, "decode soap envelope")
	}
	dec := xml.NewDecoder(bytes.NewReader(env.Body.Content))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", nil, errors.Wrap(err, "find soap operation")
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, env.Body.Content, nil
		}
	}
}
