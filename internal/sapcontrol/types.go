package sapcontrol

import "encoding/xml"

// Wire types of the sapcontrol web service. Element names follow the WSDL;
// child elements are unqualified.

// InstanceInfo is an item of GetSystemInstanceList.
type InstanceInfo struct {
	Hostname      string `xml:"hostname"`
	InstanceNr    int    `xml:"instanceNr"`
	HTTPPort      int    `xml:"httpPort"`
	HTTPSPort     int    `xml:"httpsPort"`
	StartPriority string `xml:"startPriority"`
	Features      string `xml:"features"`
	DispStatus    string `xml:"dispstatus"`
}

// OSProcess is an item of GetProcessList.
type OSProcess struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	DispStatus  string `xml:"dispstatus"`
	TextStatus  string `xml:"textstatus"`
	StartTime   string `xml:"starttime"`
	ElapsedTime string `xml:"elapsedtime"`
	Pid         int    `xml:"pid"`
}

// InstanceProperty is an item of GetInstanceProperties.
type InstanceProperty struct {
	Property     string `xml:"property"`
	PropertyType string `xml:"propertytype"`
	Value        string `xml:"value"`
}

// ComponentInfo is an item of ABAPGetComponentList.
type ComponentInfo struct {
	Component     string `xml:"component"`
	Release       string `xml:"release"`
	Patchlevel    string `xml:"patchlevel"`
	ComponentType string `xml:"componenttype"`
	Description   string `xml:"description"`
}

// SyslogItem is an item of ABAPReadSyslog.
type SyslogItem struct {
	Time     string `xml:"Time"`
	Typ      string `xml:"Typ"`
	Client   string `xml:"Client"`
	User     string `xml:"User"`
	Tcode    string `xml:"Tcode"`
	Program  string `xml:"Program"`
	Text     string `xml:"Text"`
	Severity string `xml:"Severity"`
}

// WorkProcess is an item of ABAPGetSystemWPTable.
type WorkProcess struct {
	Server  string `xml:"Server"`
	No      int    `xml:"No"`
	Typ     string `xml:"Typ"`
	Pid     int    `xml:"Pid"`
	Status  string `xml:"Status"`
	Reason  string `xml:"Reason"`
	Start   string `xml:"Start"`
	Err     string `xml:"Err"`
	Sem     string `xml:"Sem"`
	Cpu     string `xml:"Cpu"`
	Time    string `xml:"Time"`
	Program string `xml:"Program"`
	Client  string `xml:"Client"`
	User    string `xml:"User"`
	Action  string `xml:"Action"`
	Table   string `xml:"Table"`
}

// requests

type GetSystemInstanceListRequest struct {
	XMLName xml.Name `xml:"SAPControl:GetSystemInstanceList"`
	Timeout int      `xml:"timeout"`
}

type InstanceStartRequest struct {
	XMLName xml.Name `xml:"SAPControl:InstanceStart"`
	Host    string   `xml:"host"`
	Nr      int      `xml:"nr"`
}

type InstanceStopRequest struct {
	XMLName     xml.Name `xml:"SAPControl:InstanceStop"`
	Host        string   `xml:"host"`
	Nr          int      `xml:"nr"`
	Softtimeout int      `xml:"softtimeout"`
}

type StartSystemRequest struct {
	XMLName       xml.Name `xml:"SAPControl:StartSystem"`
	Options       string   `xml:"options"`
	Prioritylevel string   `xml:"prioritylevel,omitempty"`
	Waittimeout   int      `xml:"waittimeout"`
}

type StopSystemRequest struct {
	XMLName       xml.Name `xml:"SAPControl:StopSystem"`
	Options       string   `xml:"options"`
	Prioritylevel string   `xml:"prioritylevel,omitempty"`
	Softtimeout   int      `xml:"softtimeout"`
	Waittimeout   int      `xml:"waittimeout"`
}

type RestartServiceRequest struct {
	XMLName xml.Name `xml:"SAPControl:RestartService"`
}

type ParameterValueRequest struct {
	XMLName   xml.Name `xml:"SAPControl:ParameterValue"`
	Parameter string   `xml:"parameter"`
}

type ABAPGetComponentListRequest struct {
	XMLName xml.Name `xml:"SAPControl:ABAPGetComponentList"`
}

type ABAPReadSyslogRequest struct {
	XMLName xml.Name `xml:"SAPControl:ABAPReadSyslog"`
}

type ABAPGetSystemWPTableRequest struct {
	XMLName xml.Name `xml:"SAPControl:ABAPGetSystemWPTable"`
	Running bool     `xml:"running"`
}

type GetProcessListRequest struct {
	XMLName xml.Name `xml:"SAPControl:GetProcessList"`
}

type GetInstancePropertiesRequest struct {
	XMLName xml.Name `xml:"SAPControl:GetInstanceProperties"`
}

// responses

type GetSystemInstanceListResponse struct {
	Instances []InstanceInfo `xml:"instance>item"`
}

type GetProcessListResponse struct {
	Processes []OSProcess `xml:"process>item"`
}

type GetInstancePropertiesResponse struct {
	Properties []InstanceProperty `xml:"properties>item"`
}

type ParameterValueResponse struct {
	Value string `xml:"value"`
}

type ABAPGetComponentListResponse struct {
	Components []ComponentInfo `xml:"component>item"`
}

type ABAPReadSyslogResponse struct {
	Log []SyslogItem `xml:"log>item"`
}

type ABAPGetSystemWPTableResponse struct {
	WorkProcesses []WorkProcess `xml:"workprocess>item"`
}

// textResponse captures the content of operations that answer with an empty
// element on success and error text otherwise.
type textResponse struct {
	Inner string `xml:",innerxml"`
}
