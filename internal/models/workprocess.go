package models

// WorkProcessEntry is one line of the ABAP work process table (SM50).
type WorkProcessEntry struct {
	Server  string `json:"server"`
	No      int    `json:"no"`
	Type    string `json:"type"`
	Pid     int    `json:"pid"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	Start   string `json:"start"`
	Err     string `json:"err"`
	Sem     string `json:"sem"`
	CPU     string `json:"cpu"`
	Time    string `json:"time"`
	Program string `json:"program"`
	Client  string `json:"client"`
	User    string `json:"user"`
	Action  string `json:"action"`
	Table   string `json:"table"`
}

// Abnormal reports work processes that ended or carry an error.
func (wp WorkProcessEntry) Abnormal() bool {
	return wp.Status == "Ended" || wp.Err != ""
}
