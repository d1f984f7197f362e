// internal/workers/report/generate/models.go
package generate

type Output struct {
	ReportName string `json:"reportName"`
	ReportPath string `json:"reportPath"`
	Cached     bool   `json:"cached"`
	SizeBytes  int64  `json:"sizeBytes"`
}
