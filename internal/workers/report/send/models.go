// internal/workers/report/send/models.go
package send

import "vinreport-workers/internal/workers/report/jobutil"

// Output mirrors the gateway envelope: errorCode 0 and the delivery verdict
// on success, the business error otherwise.
type Output = jobutil.Envelope
