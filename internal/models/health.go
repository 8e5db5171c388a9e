package models

// HealthResponse 健康检查响应结构
// @Description 健康检查API响应数据结构
type HealthResponse struct {
	Version   string `json:"version" example:"1.0.0" description:"服务版本"`
	StartTime string `json:"startTime" example:"2024-01-01T10:00:00Z" description:"启动时间"`
	Status    string `json:"status" example:"UP" description:"健康状态"`
	Uptime    string `json:"uptime" example:"1h30m45s" description:"运行时长"`
	Host      string `json:"host" example:"sapapp01.example.com" description:"本机FQDN"`
	// 自启动以来的HTTP请求统计
	TotalRequests int64 `json:"totalRequests" example:"42" description:"请求总数"`
	ErrorRequests int64 `json:"errorRequests" example:"3" description:"错误请求数"`
}
