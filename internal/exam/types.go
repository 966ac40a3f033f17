// Package exam turns generation parameters into a validated exam paper by
// prompting an LLM and checking its JSON output.
package exam

import (
	"time"

	"github.com/pavelanni/vidya/internal/llm"
	"github.com/pavelanni/vidya/internal/validate"
)

// Board is a curriculum authority.
type Board string

const (
	BoardCBSE  Board = "CBSE"
	BoardState Board = "State"
	BoardICSE  Board = "ICSE"
	BoardIB    Board = "IB"
	BoardIGCSE Board = "IGCSE"
)

// Boards lists the supported boards in display order.
var Boards = []Board{BoardCBSE, BoardState, BoardICSE, BoardIB, BoardIGCSE}

// Label is the board name as written in prompts.
func (b Board) Label() string {
	if b == BoardState {
		return "State Board"
	}
	return string(b)
}

// DefaultDifficultyTarget is the distribution used when none is chosen.
const DefaultDifficultyTarget = "Balanced"

// GenerationRequest holds the parameters of one exam paper. Treat it as an
// immutable value.
type GenerationRequest struct {
	Board            Board     `json:"board" validate:"required,oneof=CBSE State ICSE IB IGCSE"`
	Grade            int       `json:"grade" validate:"min=1,max=12"`
	Subject          string    `json:"subject" validate:"required,max=100"`
	Chapters         []string  `json:"chapters" validate:"max=50,dive,required"`
	Topics           []string  `json:"topics" validate:"max=100,dive,required"`
	DurationMinutes  int       `json:"durationMinutes" validate:"min=1,max=600"`
	TotalMarks       int       `json:"totalMarks" validate:"min=1,max=1000"`
	DifficultyTarget string    `json:"difficultyTarget" validate:"required,max=200"`
	Timestamp        time.Time `json:"timestamp"`
}

// Validate checks the request bounds.
func (r GenerationRequest) Validate() error {
	return validate.Struct(r)
}

// QuestionType is the answer format of a question.
type QuestionType string

const (
	QuestionMCQ            QuestionType = "MCQ"
	QuestionShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionProblemSolving QuestionType = "PROBLEM_SOLVING"
)

// Difficulty is a per-question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Metadata describes the paper as a whole.
type Metadata struct {
	Title        string `json:"title"`
	Board        string `json:"board"`
	Grade        int    `json:"grade"`
	Subject      string `json:"subject"`
	Duration     int    `json:"duration"`
	TotalMarks   int    `json:"totalMarks"`
	Instructions string `json:"instructions"`
}

// Question is one generated exam question.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Difficulty    Difficulty   `json:"difficulty"`
	Marks         int          `json:"marks"`
	Chapter       string       `json:"chapter"`
	Topic         string       `json:"topic"`
	QuestionText  string       `json:"questionText"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	SolutionHint  string       `json:"solutionHint,omitempty"`
}

// Paper is a complete exam paper.
type Paper struct {
	Metadata  Metadata   `json:"metadata"`
	Questions []Question `json:"questions"`
}

// MarksSum adds up the marks of all questions.
func (p Paper) MarksSum() int {
	sum := 0
	for _, q := range p.Questions {
		sum += q.Marks
	}
	return sum
}

// CountBy tallies questions per difficulty level.
func (p Paper) CountBy() map[Difficulty]int {
	counts := make(map[Difficulty]int)
	for _, q := range p.Questions {
		counts[q.Difficulty]++
	}
	return counts
}

// PaperResponse is the JSON envelope the model is asked to produce.
type PaperResponse struct {
	ExamPaper Paper `json:"examPaper"`
}

// ParseResult is the outcome of validating generated text.
type ParseResult struct {
	Success bool
	Data    *PaperResponse
	Err     *llm.Failure
}

// Result is the outcome of one generation. Exactly one of Data and Err is set.
type Result struct {
	Success bool
	Data    *PaperResponse
	Err     *llm.Failure
}

func failed(f *llm.Failure) Result {
	return Result{Err: f}
}
