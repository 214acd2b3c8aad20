package assistant

// Fixed texts exchanged with the user and the model. Callers compare answers
// against NoMatchesAnswer and NoContextAnswer by exact string equality, so
// these must not change.
const (
	// NoMatchesAnswer is returned when the index holds nothing near the question.
	NoMatchesAnswer = "I do not know this answer."

	// NoContextAnswer replaces the context when retrieval fails.
	NoContextAnswer = "I do not know this answer and have no context of it."

	// AnswerPrefix is printed once before the first streamed fragment.
	AnswerPrefix = "[Chatbot]: "

	// Greeting opens an interactive session.
	Greeting = `[Chatbot]: Hello! How can I help you with Starburst Data? Type "exit" to close chat.`

	// NextPrompt asks for the next line of input.
	NextPrompt = "\n\n> "

	// ExitCommand ends an interactive session.
	ExitCommand = "exit"

	// PromptHeader precedes the retrieved context in the user message.
	PromptHeader = "Answer the questions in the conversation using the context below. " +
		"You are an expert on Starburst Data and a friendly assistant. " +
		"Do not instruct the user to read to docs but instead, explain the answers in a concise manner. " +
		"If the answer is not known, 'I don't know' is an appropriate response. " +
		"If writing code or YAML files, surround it with ``` CODE HERE ```.\n\n "

	// QuestionPrefix separates the context from the user's question.
	QuestionPrefix = "Question: How would you answer the below question as if you were an instructor at Starburst data? \n"

	// SystemMessage sets the assistant's persona and scope.
	SystemMessage = "You help Starburst Data users understand the product. " +
		"You answer questions about Starburst Data and Trino. Your tone is helpful and joyful."
)

// composePrompt assembles the user message. The parts are concatenated with
// no extra delimiters.
func composePrompt(context, query string) string {
	return PromptHeader + context + QuestionPrefix + query
}
