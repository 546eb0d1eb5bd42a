package transform

import (
	"fmt"
	"html"
	"net/url"

	"github.com/idrk/project-data-sync/internal/qualtrics"
)

const (
	questionConsultName        = "Q1"
	questionConsultTitle       = "Q2"
	questionConsultEmail       = "Q3"
	questionConsultSchool      = "Q4"
	questionConsultDescription = "Q5"
	questionConsultContact     = "Q6"
	questionConsultContactID   = "Q7"
)

// Fields of the consultations app.
const (
	FieldName        = "name"
	FieldTitle       = "title"
	FieldEmail       = "email"
	FieldSchool      = "school"
	FieldDescription = "description"
	FieldLinkToCRF   = "link-to-crf"
	FieldComments    = "comments"
)

const unknownContact = "unknown"

// TransformConsultation maps a consultation request response to a consultations
// record. The record links back to the response in the survey report at reportBaseURL.
func TransformConsultation(surveyID, reportBaseURL string, resp *qualtrics.Response) (*Record, error) {
	fields := newFieldReader(resp)

	responseID := fields.required(qualtrics.FieldResponseID)
	name := fields.required(questionConsultName)
	email := fields.required(questionConsultEmail)
	title := fields.optional(questionConsultTitle, "")
	school := fields.optional(questionConsultSchool, "")
	description := fields.optional(questionConsultDescription, "")
	contact := fields.optional(questionConsultContact, unknownContact)
	contactID := fields.optional(questionConsultContactID, unknownContact)
	if err := fields.err(); err != nil {
		return nil, err
	}

	rec := newRecord(FamilyConsultations, responseID)
	rec.set(FieldName, HTML(wrap(name)))
	rec.set(FieldTitle, HTML(wrap(title)))
	rec.set(FieldEmail, Email{Type: "work", Value: email})
	rec.set(FieldSchool, HTML(wrap(school)))
	rec.set(FieldDescription, HTML(wrap(description)))
	rec.set(FieldLinkToCRF, Link{URL: ResponseLink(reportBaseURL, surveyID, responseID)})
	rec.set(FieldComments, HTML(fmt.Sprintf("<p>Request received from %s (contact id %s).</p>",
		html.EscapeString(contact), html.EscapeString(contactID))))

	logLeftover(FamilyConsultations, resp, fields)

	return rec, nil
}

// ResponseLink is the permalink of one response in the survey report.
func ResponseLink(reportBaseURL, surveyID, responseID string) string {
	return fmt.Sprintf("%s?SID=%s&R=%s", reportBaseURL, url.QueryEscape(surveyID), url.QueryEscape(responseID))
}
