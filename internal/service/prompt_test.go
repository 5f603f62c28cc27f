package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_Structure(t *testing.T) {
	prompt := BuildPrompt("What are common symptoms of the flu?", []string{
		"Common flu symptoms include fever, cough, and fatigue.",
		"Vaccination against influenza is recommended every year.",
	})

	role := strings.Index(prompt, "virtual medical assistant")
	gate := strings.Index(prompt, RefusalSentence)
	question := strings.Index(prompt, "Question: What are common symptoms of the flu?")
	grounding := strings.Index(prompt, "Never fabricate symptoms, treatments, or diagnoses.")
	format := strings.Index(prompt, "bullet points for lists, else 2-3 short paragraphs")

	for name, pos := range map[string]int{
		"role": role, "gate": gate, "question": question, "grounding": grounding, "format": format,
	} {
		assert.GreaterOrEqual(t, pos, 0, name)
	}
	assert.Less(t, role, gate)
	assert.Less(t, gate, grounding)
	assert.Less(t, grounding, format)

	assert.Contains(t, prompt, "symptoms, treatment, diagnosis, medication, or healthcare")
	assert.Contains(t, prompt, "Context: Common flu symptoms include fever, cough, and fatigue. Vaccination against influenza is recommended every year.\n")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	chunks := []string{"a", "b"}
	assert.Equal(t, BuildPrompt("q", chunks), BuildPrompt("q", chunks))
	assert.NotEqual(t, BuildPrompt("q", []string{"a", "b"}), BuildPrompt("q", []string{"b", "a"}))
}

func TestBuildPrompt_NoChunks(t *testing.T) {
	prompt := BuildPrompt("Is ibuprofen safe?", nil)

	assert.Contains(t, prompt, "Question: Is ibuprofen safe?\nContext: \n")
	assert.Contains(t, prompt, RefusalSentence)
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil))
	assert.Equal(t, "one", BuildContext([]string{"one"}))
	assert.Equal(t, "one two three", BuildContext([]string{"one", "two", "three"}))
}
