package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/applicant-tracker/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildReviewPrompt creates the prompt for a structured AI review
func (pb *PromptBuilder) BuildReviewPrompt(req ReviewRequest) string {
	coverLetter := strings.TrimSpace(req.CoverLetter)
	if coverLetter == "" {
		coverLetter = "Not provided."
	}

	return fmt.Sprintf(`You are an expert HR recruiter evaluating a candidate for a %s position.

JOB DESCRIPTION:
%s

REQUIREMENTS:
%s

CANDIDATE: %s

RESUME:
%s

COVER LETTER:
%s

Compare the resume against the job description and requirements.

Return your response in the following JSON format:
{
  "match_score": <0-100>,
  "matching_keywords": ["<skill or keyword present in both>"],
  "missing_keywords": ["<required skill or keyword not found in the resume>"],
  "usp": ["<unique selling point of the candidate>"],
  "analysis": "<3-5 sentences on strengths and gaps>",
  "recommendation": "<one of: Strong Hire, Hire, Maybe, No Hire, followed by a short reason>"
}

Be objective. Return ONLY the JSON object.`,
		req.Job.Title, req.Job.Description, req.Job.Requirements, req.CandidateName, req.Resume, coverLetter)
}

// BuildInsightPrompt creates the free-text prompt sent to the local model
func (pb *PromptBuilder) BuildInsightPrompt(job models.JobContext, resume string) string {
	return fmt.Sprintf(`You are assisting a recruiter hiring for a %s position.

JOB DESCRIPTION:
%s

REQUIREMENTS:
%s

RESUME:
%s

Write a short plain-text insight for the recruiter: how well the candidate fits, their strongest points, the main gaps, and two interview questions worth asking. No JSON, no markdown headings.`,
		job.Title, job.Description, job.Requirements, resume)
}

// BuildSimilarityQuery creates the text embedded to search for matching resumes
func (pb *PromptBuilder) BuildSimilarityQuery(job models.JobContext) string {
	return strings.TrimSpace(fmt.Sprintf("%s\n\n%s\n\n%s", job.Title, job.Description, job.Requirements))
}

// TruncateRunes caps s to limit runes. A non-positive limit leaves s unchanged.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// FormatSimilarExcerpt trims a stored chunk for display
func FormatSimilarExcerpt(text string) string {
	return TruncateRunes(CleanText(text), 280)
}

// CleanText trims every line and drops empty ones
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}

// CleanParagraphs trims every line and collapses runs of blank lines into a
// single paragraph break
func CleanParagraphs(text string) string {
	var b strings.Builder
	blank := false

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = true
			continue
		}
		if b.Len() > 0 {
			if blank {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(line)
		blank = false
	}

	return b.String()
}
