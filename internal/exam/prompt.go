package exam

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to act as an exam designer and to answer
// with the JSON envelope validated by ParseExamPaper.
const SystemPrompt = `You are an expert Indian school exam paper designer with deep knowledge of CBSE, State, ICSE, IB and IGCSE curricula. Your task is to generate complete, well-structured exam papers that strictly follow the provided specifications.

CRITICAL REQUIREMENTS:

1. Curriculum alignment:
   - Generate questions ONLY for the specified board
   - Stay strictly within the provided chapters and topics
   - Do NOT include out-of-syllabus content unless explicitly listed in the scope
   - Use age-appropriate language and complexity for the specified grade

2. Question types:
   - Mix Multiple Choice Questions (MCQ), Short Answer and Problem Solving questions
   - Typical distribution: 40% MCQ, 30% Short Answer, 30% Problem Solving
   - Adjust to the subject (e.g. Mathematics has more problem solving)

3. Difficulty distribution:
   - EASY (45-55%): recall, direct application, fundamental concepts
   - MEDIUM (30-40%): application, analysis, multi-step problems
   - HARD (10-20%): synthesis, evaluation, complex problem solving
   - Follow the requested difficulty target when it differs from this default

4. Marking scheme:
   - MCQ: typically 1-2 marks, Short Answer: 2-4 marks, Problem Solving: 4-8 marks
   - The marks of all questions MUST add up exactly to the requested total

5. Output format, STRICT JSON ONLY, matching this schema:

{
  "examPaper": {
    "metadata": {
      "title": "string",
      "board": "string",
      "grade": number,
      "subject": "string",
      "duration": number (minutes),
      "totalMarks": number,
      "instructions": "string"
    },
    "questions": [
      {
        "id": "string (e.g. Q1)",
        "type": "MCQ | SHORT_ANSWER | PROBLEM_SOLVING",
        "difficulty": "EASY | MEDIUM | HARD",
        "marks": number,
        "chapter": "string",
        "topic": "string",
        "questionText": "string",
        "options": ["string"] (MCQ only, exactly 4 options),
        "correctAnswer": "string (MCQ only, the exact text of the correct option)",
        "solutionHint": "string (optional)"
      }
    ]
  }
}

VALIDATION RULES:
- Sum of all question marks MUST equal totalMarks
- Every question MUST have all required fields
- MCQ questions MUST have exactly 4 options and a correctAnswer copied from them
- All questions MUST relate to the provided chapters and topics

OUTPUT ONLY THE JSON. Do not add explanatory text or markdown code fences. Start directly with the opening brace.`

// BuildUserPrompt renders req as the user message. The output depends only on
// the request fields (not the timestamp), so equal requests give identical prompts.
func BuildUserPrompt(req GenerationRequest) string {
	chapters := "All chapters"
	if len(req.Chapters) > 0 {
		chapters = strings.Join(req.Chapters, ", ")
	}
	topics := "All topics"
	if len(req.Topics) > 0 {
		topics = strings.Join(req.Topics, ", ")
	}

	var b strings.Builder
	b.WriteString("Generate a complete exam paper with the following specifications:\n\n")

	b.WriteString("Curriculum details:\n")
	fmt.Fprintf(&b, "- Board: %s\n", req.Board.Label())
	fmt.Fprintf(&b, "- Grade/Class: %d\n", req.Grade)
	fmt.Fprintf(&b, "- Subject: %s\n\n", req.Subject)

	b.WriteString("Syllabus scope:\n")
	fmt.Fprintf(&b, "- Chapters: %s\n", chapters)
	fmt.Fprintf(&b, "- Topics: %s\n\n", topics)

	b.WriteString("Exam specifications:\n")
	fmt.Fprintf(&b, "- Duration: %d minutes\n", req.DurationMinutes)
	fmt.Fprintf(&b, "- Total Marks: %d\n", req.TotalMarks)
	fmt.Fprintf(&b, "- Difficulty Target: %s\n\n", req.DifficultyTarget)

	b.WriteString("Instructions:\n")
	b.WriteString("1. Create a balanced mix of MCQ, Short Answer, and Problem Solving questions\n")
	fmt.Fprintf(&b, "2. Distribute difficulty as: %s\n", req.DifficultyTarget)
	fmt.Fprintf(&b, "3. Ensure total marks sum exactly to %d\n", req.TotalMarks)
	b.WriteString("4. All questions must be from the specified chapters and topics only\n")
	fmt.Fprintf(&b, "5. Make questions appropriate for Class %d students\n\n", req.Grade)

	b.WriteString("Generate the exam paper now in the specified JSON format.")
	return b.String()
}
