// internal/workers/report/example-send/models.go
package examplesend

import "vinreport-workers/internal/workers/report/jobutil"

type Output = jobutil.Envelope
