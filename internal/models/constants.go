package models

const (
	ContextSeparator = "\n---\n"
	DefaultTopK      = 4
)

var (
	// QAPromptTemplate takes the retrieved context.
	QAPromptTemplate = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`

	// CondenseQuestionTemplate takes the chat history and the follow up question.
	CondenseQuestionTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
%s
Follow Up Input: %s
Standalone question:`
)
