package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount_AcceptsNumbersAndNumericStrings(t *testing.T) {
	cases := map[string]Count{
		`12`:     12,
		`"12"`:   12,
		`" 7 "`:  7,
		`""`:     0,
		`3.9`:    3,
		`"-2"`:   -2,
		`"1e2"`:  100,
		`0`:      0,
		`"0012"`: 12,
	}
	for in, want := range cases {
		var c Count
		require.NoError(t, json.Unmarshal([]byte(in), &c), in)
		assert.Equal(t, want, c, in)
	}

	var c Count
	assert.Error(t, json.Unmarshal([]byte(`"twelve"`), &c))
	assert.Error(t, json.Unmarshal([]byte(`true`), &c))
}

func TestFlag_AcceptsYesNo(t *testing.T) {
	cases := map[string]Flag{
		`true`:    true,
		`false`:   false,
		`"yes"`:   true,
		`"no"`:    false,
		`"YES"`:   true,
		`"true"`:  true,
		`""`:      false,
		`1`:       true,
		`0`:       false,
	}
	for in, want := range cases {
		var f Flag
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Equal(t, want, f, in)
	}

	var f Flag
	assert.Error(t, json.Unmarshal([]byte(`"maybe"`), &f))
}

func TestCountAndFlag_Scan(t *testing.T) {
	var c Count
	require.NoError(t, c.Scan(int64(5)))
	assert.Equal(t, Count(5), c)
	require.NoError(t, c.Scan([]byte("9")))
	assert.Equal(t, Count(9), c)

	var f Flag
	require.NoError(t, f.Scan(int64(1)))
	assert.True(t, bool(f))
	require.NoError(t, f.Scan(false))
	assert.False(t, bool(f))
}

func TestAnswers_MergeIsShallowKeyWise(t *testing.T) {
	a := Answers{}
	a.BusinessPurpose = Ptr("first")
	a.ProductStage = Ptr("mvp")
	a.SixMonthGoals = Tags{"scale"}

	err := a.Merge([]byte(`{
		"businessPurpose": "second",
		"sixMonthGoals": ["launch", "scale"],
		"totalProfessionals": "4",
		"hasDeadlineOrInvestment": "yes",
		"id": "ignored",
		"currentStep": 7
	}`))
	require.NoError(t, err)

	assert.Equal(t, "second", *a.BusinessPurpose)
	assert.Equal(t, "mvp", *a.ProductStage)
	assert.Equal(t, Tags{"launch", "scale"}, a.SixMonthGoals)
	require.NotNil(t, a.TotalProfessionals)
	assert.Equal(t, Count(4), *a.TotalProfessionals)
	require.NotNil(t, a.HasDeadlineOrInvestment)
	assert.True(t, bool(*a.HasDeadlineOrInvestment))
}

func TestAnswers_MergeNullClears(t *testing.T) {
	a := Answers{}
	a.AnalystNotes = Ptr("note")
	a.DeliveryTools = Tags{"jenkins"}

	require.NoError(t, a.Merge([]byte(`{"analystNotes": null, "deliveryTools": null}`)))
	assert.Nil(t, a.AnalystNotes)
	assert.Nil(t, a.DeliveryTools)
}

func TestAnswers_MergeFailureLeavesAnswersUntouched(t *testing.T) {
	a := Answers{}
	a.BusinessPurpose = Ptr("keep")

	err := a.Merge([]byte(`{"businessPurpose": "lost", "vendorCount": "many"}`))
	require.Error(t, err)
	assert.Equal(t, "keep", *a.BusinessPurpose)

	assert.Error(t, a.Merge([]byte(`["not", "an", "object"]`)))
}

func TestAnswers_CloneDoesNotAlias(t *testing.T) {
	a := Answers{}
	a.LessonsLearned = Ptr("original")
	a.TeamProfiles = []TeamProfile{{Role: "backend", Quantity: 2}}

	b := a.Clone()
	*b.LessonsLearned = "changed"
	b.TeamProfiles[0].Quantity = 5

	assert.Equal(t, "original", *a.LessonsLearned)
	assert.Equal(t, Count(2), a.TeamProfiles[0].Quantity)
}

func TestQuestionnaireResponse_JSONIsFlat(t *testing.T) {
	r := QuestionnaireResponse{ID: "r1", UserID: "u1", CurrentStep: 1}
	r.BusinessPurpose = Ptr("X")

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(b, &flat))
	assert.Equal(t, "X", flat["businessPurpose"])
	assert.Equal(t, "u1", flat["userId"])
	assert.EqualValues(t, 1, flat["currentStep"])
	assert.Contains(t, flat, "analystNotes")
	assert.NotContains(t, flat, "BusinessContext")
}

func TestToggleTag(t *testing.T) {
	tags := []string{"a", "b"}

	assert.Equal(t, []string{"a", "b", "c"}, ToggleTag(tags, "c", true))
	assert.Equal(t, []string{"a", "b"}, ToggleTag(tags, "a", true))
	assert.Equal(t, []string{"b"}, ToggleTag(tags, "a", false))
	assert.Equal(t, []string{"a", "b"}, ToggleTag(tags, "z", false))
	assert.Equal(t, []string{"a", "b"}, tags)
	assert.Equal(t, []string{"x"}, ToggleTag(nil, "x", true))
}
