package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAnswerUnmarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Answer
	}{
		{"number becomes index", `2`, IndexAnswer(2)},
		{"zero index", `0`, IndexAnswer(0)},
		{"array becomes index set", `[0,2]`, IndexSetAnswer(0, 2)},
		{"empty array is a set", `[]`, Answer{Kind: AnswerIndexSet, Indices: []int{}}},
		{"string becomes text", `"paris"`, TextAnswer("paris")},
		{"null is unset", `null`, Answer{}},
		{"object degrades to unset", `{"a":1}`, Answer{}},
		{"boolean degrades to unset", `true`, Answer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Answer
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("unmarshal %s = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAnswerMarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Answer
		want string
	}{
		{"index", IndexAnswer(3), `3`},
		{"index set", IndexSetAnswer(2, 0), `[2,0]`},
		{"nil set marshals as empty array", Answer{Kind: AnswerIndexSet}, `[]`},
		{"text", TextAnswer("  Paris "), `"  Paris "`},
		{"unset is null", Answer{}, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAnswerMapClone(t *testing.T) {
	orig := AnswerMap{
		"q1": IndexAnswer(1),
		"q2": IndexSetAnswer(0, 2),
	}
	clone := orig.Clone()

	clone["q1"] = IndexAnswer(3)
	clone["q2"].Indices[0] = 9

	if orig["q1"].Index != 1 {
		t.Errorf("clone write leaked into original scalar")
	}
	if orig["q2"].Indices[0] != 0 {
		t.Errorf("clone write leaked into original index set")
	}
}

func TestAnsweredCount(t *testing.T) {
	m := AnswerMap{
		"q1": IndexAnswer(0),
		"q2": Answer{},
		"q3": TextAnswer("x"),
	}
	if got := m.AnsweredCount(); got != 2 {
		t.Errorf("AnsweredCount() = %d, want 2", got)
	}
}

func TestQuestionIDAcceptsStringAndNumber(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"id": 7, "type": "single_choice"}`), &q); err != nil {
		t.Fatalf("unmarshal numeric id: %v", err)
	}
	if q.ID != "7" {
		t.Errorf("numeric id normalized to %q, want %q", q.ID, "7")
	}

	if err := json.Unmarshal([]byte(`{"id": "q9"}`), &q); err != nil {
		t.Fatalf("unmarshal string id: %v", err)
	}
	if q.ID != "q9" {
		t.Errorf("string id = %q, want %q", q.ID, "q9")
	}
}
