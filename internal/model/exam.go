package model

// Question is one multiple-choice item. Wire names follow the browser client
// payload ("question", "correctAnswer").
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question" binding:"required,max=2000"`
	Options       []string `json:"options" binding:"required,len=4,dive,required"`
	CorrectAnswer int      `json:"correctAnswer" binding:"min=0,max=3"`
}

// ResultSummary is the score computed by the exam client when a session ends.
type ResultSummary struct {
	Score               int   `json:"score" binding:"min=0,max=100"`
	CorrectAnswers      int   `json:"correctAnswers" binding:"min=0"`
	TotalQuestions      int   `json:"totalQuestions" binding:"min=0"`
	UnansweredQuestions int   `json:"unansweredQuestions" binding:"min=0"`
	UnseenQuestions     int   `json:"unseenQuestions" binding:"min=0"`
	TimeTaken           int   `json:"timeTaken" binding:"min=0,max=86400"`
	Answers             []int `json:"answers"`
}

// SubmitExamRequest is the payload of POST /api/submit-exam.
type SubmitExamRequest struct {
	StudentName string        `json:"studentName" binding:"required,max=100"`
	SchoolID    string        `json:"schoolId" binding:"required,max=50"`
	Answers     []int         `json:"answers" binding:"required,min=1,dive,min=-1,max=3"`
	Results     ResultSummary `json:"results"`
	Questions   []Question    `json:"questions" binding:"required,min=1,dive"`
	// TimeSpent holds seconds spent per question. Optional; missing entries are 0.
	// Both time fields are capped at one day.
	TimeSpent []int `json:"timeSpent,omitempty" binding:"omitempty,dive,min=0,max=86400"`
}

// SubmitExamResponse acknowledges a stored submission.
type SubmitExamResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ExamSessionID int64  `json:"examSessionId"`
}
