package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	// SectionCount is the number of wizard sections.
	SectionCount = 11
	LastStep     = SectionCount - 1
)

// Tags is an ordered multi-select answer stored as a JSON column.
type Tags = datatypes.JSONSlice[string]

type TeamProfile struct {
	Role     string `json:"role"`
	Quantity Count  `json:"quantity"`
}

// Section 1.
type BusinessContext struct {
	BusinessPurpose             *string `json:"businessPurpose" gorm:"type:text"`
	ProductStage                *string `json:"productStage" gorm:"size:50"`
	ActiveUsers                 *string `json:"activeUsers" gorm:"size:50"`
	SixMonthGoals               Tags    `json:"sixMonthGoals"`
	HasDeadlineOrInvestment     *Flag   `json:"hasDeadlineOrInvestment"`
	DeadlineOrInvestmentDetails *string `json:"deadlineOrInvestmentDetails" gorm:"type:text"`
}

// Section 2.
type Organization struct {
	TeamStructure      *string                          `json:"teamStructure" gorm:"size:50"`
	TotalProfessionals *Count                           `json:"totalProfessionals"`
	TeamProfiles       datatypes.JSONSlice[TeamProfile] `json:"teamProfiles"`
	DedicationType     *string                          `json:"dedicationType" gorm:"size:50"`
	FattoRole          *string                          `json:"fattoRole" gorm:"size:50"`
}

// Section 3.
type Scope struct {
	FattoEntryPoint     *string `json:"fattoEntryPoint" gorm:"size:50"`
	RequirementsProcess *string `json:"requirementsProcess" gorm:"size:50"`
	PlannedFeatures     *Count  `json:"plannedFeatures"`
	ValidationMethod    *string `json:"validationMethod" gorm:"size:50"`
}

// Section 4.
type Technology struct {
	MainTechnologies            *string `json:"mainTechnologies" gorm:"type:text"`
	SystemsCount                *Count  `json:"systemsCount"`
	ArchitectureModel           *string `json:"architectureModel" gorm:"size:50"`
	ArchitectureAutonomy        *string `json:"architectureAutonomy" gorm:"size:50"`
	ExternalIntegrations        *Count  `json:"externalIntegrations"`
	HasCriticalIntegrations     *Flag   `json:"hasCriticalIntegrations"`
	CriticalIntegrationsDetails *string `json:"criticalIntegrationsDetails" gorm:"type:text"`
}

// Section 5.
type DevOps struct {
	Environments              Tags    `json:"environments"`
	EnvironmentsCount         *Count  `json:"environmentsCount"`
	ProvisioningResponsible   *string `json:"provisioningResponsible" gorm:"size:50"`
	CicdImplemented           *string `json:"cicdImplemented" gorm:"size:50"`
	DeliveryTools             Tags    `json:"deliveryTools"`
	MonthlyDeploys            *Count  `json:"monthlyDeploys"`
	FattoDeployResponsibility *string `json:"fattoDeployResponsibility" gorm:"size:50"`
}

// Section 6.
type Support struct {
	FattoSustainment *Flag   `json:"fattoSustainment"`
	MonthlyIncidents *Count  `json:"monthlyIncidents"`
	CurrentSupport   *string `json:"currentSupport" gorm:"size:50"`
	SlaDuration      *string `json:"slaDuration" gorm:"size:50"`
	ReleaseRoadmap   *string `json:"releaseRoadmap" gorm:"size:50"`
}

// Section 7.
type Governance struct {
	MeetingFrequency           *string `json:"meetingFrequency" gorm:"size:50"`
	RegularMeetingParticipants *Count  `json:"regularMeetingParticipants"`
	HasProductOwner            *Flag   `json:"hasProductOwner"`
	BacklogTools               *string `json:"backlogTools" gorm:"size:50"`
	DecisionFormalization      *string `json:"decisionFormalization" gorm:"size:50"`
}

// Section 8.
type Commercial struct {
	ContractModel         *string `json:"contractModel" gorm:"size:50"`
	BillingType           *string `json:"billingType" gorm:"size:50"`
	StartTimeline         *string `json:"startTimeline" gorm:"size:50"`
	BudgetRange           *string `json:"budgetRange" gorm:"size:50"`
	RequiredProfessionals *Count  `json:"requiredProfessionals"`
}

// Section 9.
type Risks struct {
	PreviousVendors  *Flag   `json:"previousVendors"`
	VendorCount      *Count  `json:"vendorCount"`
	MainDifficulties Tags    `json:"mainDifficulties"`
	LessonsLearned   *string `json:"lessonsLearned" gorm:"type:text"`
}

// Section 10.
type NextSteps struct {
	ExpectedFattoRole      Tags    `json:"expectedFattoRole"`
	PrioritaryDeliverables Tags    `json:"prioritaryDeliverables"`
	ShortTermDeliverables  *Count  `json:"shortTermDeliverables"`
	ExpectedFattoAutonomy  *string `json:"expectedFattoAutonomy" gorm:"size:50"`
}

// Section 11.
type Synthesis struct {
	AnalystNotes *string `json:"analystNotes" gorm:"type:text"`
}

// Answers is every section's fields flattened into one record, both in JSON
// and in the table.
type Answers struct {
	BusinessContext
	Organization
	Scope
	Technology
	DevOps
	Support
	Governance
	Commercial
	Risks
	NextSteps
	Synthesis
}

// Clone returns a deep copy.
func (a Answers) Clone() Answers {
	b, err := json.Marshal(a)
	if err != nil {
		panic(fmt.Sprintf("answers: marshal clone: %v", err))
	}
	var out Answers
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("answers: unmarshal clone: %v", err))
	}
	return out
}

// Merge overwrites the fields named by the keys of the JSON object patch.
// Keys that are not answer fields are ignored and an explicit null clears a
// field. On error a is left as it was.
func (a *Answers) Merge(patch []byte) error {
	if len(patch) == 0 {
		return nil
	}
	merged := a.Clone()
	if err := json.Unmarshal(patch, &merged); err != nil {
		return err
	}
	*a = merged
	return nil
}

type QuestionnaireResponse struct {
	ID     string `json:"id" gorm:"primaryKey;size:64"`
	UserID string `json:"userId" gorm:"uniqueIndex;size:64;not null"`
	Answers
	CurrentStep int        `json:"currentStep" gorm:"not null;default:0"`
	IsCompleted bool       `json:"isCompleted" gorm:"not null;default:false"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"index;autoUpdateTime:false"`
}

// ToggleTag adds tag to the end of tags when on, removes every occurrence
// otherwise. The input slice is not modified.
func ToggleTag(tags []string, tag string, on bool) []string {
	out := make([]string, 0, len(tags)+1)
	found := false
	for _, t := range tags {
		if t == tag {
			if !on {
				continue
			}
			found = true
		}
		out = append(out, t)
	}
	if on && !found {
		out = append(out, tag)
	}
	return out
}

// Ptr is a shorthand for answer literals.
func Ptr[T any](v T) *T { return &v }
