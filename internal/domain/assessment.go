package domain

// AssessmentState is the in-progress questionnaire position for one username.
// Invariant: len(Answers) == QuestionIndex — the index always names the
// question currently awaiting an answer. The state is removed from the session
// store in the same critical section that records the final answer, so a
// "completed" state is never observable.
type AssessmentState struct {
	// QuestionIndex is the index of the question currently awaiting an answer.
	QuestionIndex int
	// Answers holds one entry per answered question, in bank order.
	Answers []string
}
