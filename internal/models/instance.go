package models

// SystemInstance is one entry of GetSystemInstanceList.
type SystemInstance struct {
	Hostname      string     `json:"hostname"`
	InstanceNr    int        `json:"instance"`
	HTTPPort      int        `json:"httpPort"`
	HTTPSPort     int        `json:"httpsPort"`
	StartPriority float64    `json:"startPriority"`
	Features      []string   `json:"features"`
	Status        StatusCode `json:"status"`
}
