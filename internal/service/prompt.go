package service

import "strings"

// RefusalSentence is the exact reply the generator is instructed to give for
// a query outside the medical domain.
const RefusalSentence = "I'm sorry, but I can only help with medical questions."

// ContextSeparator joins retrieved chunk texts into the prompt context.
const ContextSeparator = " "

// BuildContext joins chunk texts in retrieval order.
func BuildContext(chunks []string) string {
	return strings.Join(chunks, ContextSeparator)
}

// BuildPrompt assembles the instruction prompt sent to the generator. The
// output depends only on its inputs.
func BuildPrompt(query string, chunks []string) string {
	return promptFromContext(query, BuildContext(chunks))
}

func promptFromContext(query, contextText string) string {
	var b strings.Builder
	b.WriteString("You're a virtual medical assistant. Your job is to answer the user's medical query using the provided clinical context.\n\n")

	b.WriteString("First, decide whether the question is medically related ")
	b.WriteString("(symptoms, treatment, diagnosis, medication, or healthcare). ")
	b.WriteString("If it is not, respond with exactly this sentence and nothing else:\n")
	b.WriteString(RefusalSentence)
	b.WriteString("\n\n")

	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\nContext: ")
	b.WriteString(contextText)
	b.WriteString("\n\n")

	b.WriteString("Instructions:\n")
	b.WriteString("- Use only the context to answer if it provides enough information.\n")
	b.WriteString("- If context is insufficient, rely on medically accurate and reliable knowledge to complete the answer.\n")
	b.WriteString("- Never fabricate symptoms, treatments, or diagnoses.\n")
	b.WriteString("- Be concise and clinically relevant.\n")
	b.WriteString("- Format the answer clearly (prefer bullet points for lists, else 2-3 short paragraphs).")
	return b.String()
}
