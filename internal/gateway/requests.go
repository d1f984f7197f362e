package gateway

import (
	"vinreport-workers/internal/macro"
	"vinreport-workers/internal/models"
)

// Parameter names read by the request builders.
const (
	ParamToken = "token"
	ParamEmail = "email"
)

// BuildDataRequest builds a data set query. Terms keep the order of
// termNames; absent parameters are sent as null.
func BuildDataRequest(dataSet string, params models.Params, termNames []string) models.DataRequest {
	terms := make([]models.Term, 0, len(termNames))
	for _, name := range termNames {
		terms = append(terms, models.Term{Name: name, Value: params.Ptr(name)})
	}
	return models.DataRequest{
		DataSet: dataSet,
		Token:   params.Ptr(ParamToken),
		Terms:   terms,
	}
}

// BuildEmailRequest resolves subject and body against params and attaches
// raw as a base64 text/plain attachment.
func BuildEmailRequest(params models.Params, subject, body, filename string, raw []byte) models.EmailRequest {
	return BuildEmailRequestWith(params, subject, body,
		models.NewAttachment(filename, models.AttachmentContentType, raw))
}

// BuildEmailRequestWith is BuildEmailRequest for prepared attachments.
func BuildEmailRequestWith(params models.Params, subject, body string, attachments ...models.Attachment) models.EmailRequest {
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	return models.EmailRequest{
		Token:       params.Ptr(ParamToken),
		ToEmail:     params.Ptr(ParamEmail),
		Subject:     macro.Resolve(subject, params),
		Body:        macro.Resolve(body, params),
		Attachments: attachments,
	}
}
