package transform

import (
	"fmt"
	"strings"

	"github.com/idrk/project-data-sync/internal/qualtrics"
)

// Questions of the project request survey.
const (
	questionProjectName     = "Q2"
	questionContactName     = "Q3"
	questionTeam            = "Q6"
	questionProjectType     = "Q9"
	questionDerivativeOf    = "Q11"
	questionRepeatAudience  = "Q12"
	questionIntendedChanges = "Q13"
	questionDesiredLaunch   = "Q14"
	questionDescription     = "Q15"
	questionImpact          = "Q16"
	questionSupport         = "Q17"
	questionNewAudience     = "Q19"
	questionResearch        = "Q20"
	questionSchedule        = "Q21"
	questionContactUniqname = "Q27"
	questionFunding         = "Q36"
	questionConsult         = "Q37"
)

// Fields of the projects app.
const (
	FieldProjectName         = "project-name"
	FieldOfferingType        = "course-offering-type"
	FieldStatusNotes         = "status-notes"
	FieldShortDescription    = "short-description"
	FieldDerivativeOf        = "derivative-of"
	FieldAudienceNotes       = "audience-notes"
	FieldFundingStipulations = "funding-stipulations"
	FieldConsult             = "consult"
)

const (
	projectNamePrefix  = "TBD_"
	statusNoteTemplate = "Requested via project request form, submitted %s"
	defaultConsult     = "No one"
	notSpecified       = "Not specified"
)

// TransformProject maps a project request response to a projects record.
// A response without project name returns ErrSkipRecord.
func TransformProject(resp *qualtrics.Response) (*Record, error) {
	fields := newFieldReader(resp)

	name, _ := fields.take(questionProjectName)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrSkipRecord
	}

	typeCode := fields.required(questionProjectType)
	contact := fields.required(questionContactName)
	uniqname := fields.required(questionContactUniqname)
	team := fields.required(questionTeam)
	endDate := fields.required(qualtrics.FieldEndDate)
	if err := fields.err(); err != nil {
		return nil, err
	}

	recordType, ok := DecodeRecordType(typeCode)
	if !ok {
		return nil, &InvalidFieldError{Field: questionProjectType, Value: typeCode, ResponseID: resp.ID()}
	}

	rec := newRecord(FamilyProjects, resp.ID())
	rec.set(FieldProjectName, projectNamePrefix+name)
	rec.set(FieldOfferingType, Category{Text: recordType.String(), ID: recordType.Code()})
	rec.set(FieldStatusNotes, fmt.Sprintf(statusNoteTemplate, endDate))

	var description strings.Builder
	description.WriteString(paragraph("Requested by", fmt.Sprintf("%s (%s)", contact, uniqname)))
	description.WriteString(paragraph("Project team", team))

	switch recordType {
	case Repeat:
		derivativeOf := fields.required(questionDerivativeOf)
		audience := fields.required(questionRepeatAudience)
		changes := fields.optional(questionIntendedChanges, notSpecified)
		launch := fields.optional(questionDesiredLaunch, notSpecified)

		rec.set(FieldDerivativeOf, derivativeOf)
		rec.set(FieldAudienceNotes, HTML(wrap(audience)))
		description.WriteString(paragraph("Intended changes", changes))
		description.WriteString(paragraph("Desired launch", launch))
	case Derivative, FirstRun:
		summary := fields.required(questionDescription)
		impact := fields.required(questionImpact)
		support := fields.required(questionSupport)
		research := fields.required(questionResearch)
		schedule := fields.required(questionSchedule)
		funding := fields.required(questionFunding)
		audience := fields.optional(questionNewAudience, notSpecified)
		consult := fields.optional(questionConsult, defaultConsult)

		rec.set(FieldAudienceNotes, HTML(wrap(audience)))
		rec.set(FieldFundingStipulations, HTML(wrap(funding)))
		rec.set(FieldConsult, consult)
		description.WriteString(paragraph("Project description", summary))
		description.WriteString(paragraph("Impact", impact))
		description.WriteString(paragraph("Support needed", support))
		description.WriteString(paragraph("Research plans", research))
		description.WriteString(paragraph("Schedule", schedule))
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	rec.set(FieldShortDescription, HTML(description.String()))
	logLeftover(FamilyProjects, resp, fields)

	return rec, nil
}
