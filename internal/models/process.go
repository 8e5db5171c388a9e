package models

// ProcessDescriptor is one entry of GetProcessList.
type ProcessDescriptor struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      StatusCode `json:"status"`
	TextStatus  string     `json:"textStatus"`
	StartTime   string     `json:"startTime"`
	ElapsedTime string     `json:"elapsedTime"`
	Pid         int        `json:"pid"`
}
