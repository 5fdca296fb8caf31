package model

// ClassificationResult is the verdict of the remote classifier for a single sentence.
type ClassificationResult struct {
	ID       int64  `json:"id"`
	Sentence string `json:"sentence"`
	// Cleave is true when the sentence derails the meeting.
	Cleave bool   `json:"cleave"`
	Reason string `json:"reason"`
}

// Transcript is a final transcript emitted by the speech engine for one utterance.
type Transcript struct {
	Text string `json:"text"`
}

// Reaction is published after every successfully classified fragment.
type Reaction struct {
	SessionID string `json:"sessionId"`
	Seq       int64  `json:"seq"`
	Tier      Tier   `json:"tier"`
	BadCount  int    `json:"badCount"`
	TotalBad  int    `json:"totalBad"`
	Window    []bool `json:"window"`
	ResultID  int64  `json:"resultId"`
	Sentence  string `json:"sentence"`
	Reason    string `json:"reason,omitempty"`
}
