package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
)

// minEntryLength is the length an experience or education entry must exceed
// to be kept.
const minEntryLength = 10

// Range is the byte span of a captured section in the input. Start is -1 when
// the section heading was not found.
type Range struct {
	Start int
	End   int
}

var noRange = Range{Start: -1, End: -1}

// sectionRule finds a section heading and captures the text up to the next
// stop heading or the end of the input.
type sectionRule struct {
	heading *regexp.Regexp
	stop    *regexp.Regexp
}

func newSectionRule(headings, stops []string) sectionRule {
	return sectionRule{
		heading: regexp.MustCompile(`(?i)\b(?:` + strings.Join(headings, "|") + `)[:\s]`),
		stop:    regexp.MustCompile(`(?i)\b(?:` + strings.Join(stops, "|") + `)[:\s]`),
	}
}

func (r sectionRule) capture(text string) (string, Range) {
	loc := r.heading.FindStringIndex(text)
	if loc == nil {
		return "", noRange
	}

	start := loc[1]
	end := len(text)
	if stop := r.stop.FindStringIndex(text[start:]); stop != nil {
		end = start + stop[0]
	}

	return text[start:end], Range{Start: start, End: end}
}

var (
	summaryRule = newSectionRule(
		[]string{"summary", "profile", "about", "objective"},
		[]string{"skills", "experience", "education", "work", "employment", "certifications", "contact"},
	)
	skillsRule = newSectionRule(
		[]string{"technical skills", "skills", "expertise", "competencies"},
		[]string{"experience", "education", "work", "employment", "certifications", "contact"},
	)
	experienceRule = newSectionRule(
		[]string{"work experience", "experience", "employment"},
		[]string{"education", "skills", "certifications", "contact", "projects"},
	)
	educationRule = newSectionRule(
		[]string{"academic background", "education", "qualifications"},
		[]string{"experience", "skills", "certifications", "contact", "projects"},
	)
	certificationsRule = newSectionRule(
		[]string{"certifications", "certificates", "licenses"},
		[]string{"experience", "education", "skills", "work", "employment", "contact", "projects"},
	)

	listSeparator = regexp.MustCompile(`[,\n•·●▪■◦]`)
	lineBullet    = regexp.MustCompile(`(?m)^[ \t]*[-*][ \t]+`)
	entryStart    = regexp.MustCompile(`(?i)^(?:\d{4}|(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b)`)

	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{7,}\d`)
	linkedinPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/[^\s,;|]+`)
	githubPattern   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[^\s,;|]+`)
)

// structurePass is one independent step of the pipeline. It reads the
// immutable input and writes only its own section of the result.
type structurePass struct {
	name string
	run  func(text string, out *models.StructuredResume) Range
}

// Structurer splits resume text into sections with heading heuristics. It is
// a layout guess: overlapping headings (for example "Technical Skills" inside
// an experience bullet) can assign text to the wrong section.
type Structurer struct {
	logger    *zap.Logger
	passes    []structurePass
	normalize func(*models.StructuredResume)
}

func NewStructurer(logger *zap.Logger) *Structurer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Structurer{
		logger:    logger,
		passes:    defaultPasses(),
		normalize: ensureSections,
	}
}

func defaultPasses() []structurePass {
	return []structurePass{
		{name: "summary", run: func(text string, out *models.StructuredResume) Range {
			span, rng := summaryRule.capture(text)
			out.Summary = strings.TrimSpace(span)
			return rng
		}},
		{name: "skills", run: func(text string, out *models.StructuredResume) Range {
			span, rng := skillsRule.capture(text)
			out.Skills = splitList(span)
			return rng
		}},
		{name: "experience", run: func(text string, out *models.StructuredResume) Range {
			span, rng := experienceRule.capture(text)
			out.Experience = splitEntries(span)
			return rng
		}},
		{name: "education", run: func(text string, out *models.StructuredResume) Range {
			span, rng := educationRule.capture(text)
			out.Education = splitEntries(span)
			return rng
		}},
		{name: "certifications", run: func(text string, out *models.StructuredResume) Range {
			span, rng := certificationsRule.capture(text)
			out.Certifications = splitList(span)
			return rng
		}},
		{name: "contact", run: func(text string, out *models.StructuredResume) Range {
			out.Contact = extractContact(text)
			return noRange
		}},
	}
}

// Structure never fails: a broken pass leaves its section empty, and a
// failure of the pipeline itself returns an empty structure carrying the raw
// text.
func (s *Structurer) Structure(text string) (result models.StructuredResume) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("resume structuring degraded to raw text",
				zap.Error(fmt.Errorf("%w: %v", apperr.ErrStructureDegraded, r)),
			)
			result = models.EmptyStructuredResume()
			result.RawText = text
		}
	}()

	result = models.EmptyStructuredResume()
	for _, pass := range s.passes {
		s.runPass(pass, text, &result)
	}
	s.normalize(&result)

	return result
}

func (s *Structurer) runPass(pass structurePass, text string, out *models.StructuredResume) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("resume section pass failed",
				zap.String("section", pass.name),
				zap.Any("panic", r),
			)
		}
	}()

	rng := pass.run(text, out)
	if rng.Start >= 0 {
		s.logger.Debug("resume section found",
			zap.String("section", pass.name),
			zap.Int("start", rng.Start),
			zap.Int("end", rng.End),
		)
	}
}

func ensureSections(r *models.StructuredResume) {
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.Experience == nil {
		r.Experience = []string{}
	}
	if r.Education == nil {
		r.Education = []string{}
	}
	if r.Certifications == nil {
		r.Certifications = []string{}
	}
	if r.Contact == nil {
		r.Contact = map[string]string{}
	}
}

// splitList splits on commas, bullets and newlines and drops empty tokens.
// A "-" or "*" is a bullet only at the start of a line.
func splitList(span string) []string {
	items := []string{}
	span = lineBullet.ReplaceAllString(span, "")
	for _, token := range listSeparator.Split(span, -1) {
		token = strings.TrimSpace(token)
		if token != "" {
			items = append(items, token)
		}
	}
	return items
}

// splitEntries starts a new entry at every line beginning with a year or a
// month name and keeps entries longer than minEntryLength.
func splitEntries(span string) []string {
	var raw []string
	var current strings.Builder

	for _, line := range strings.Split(span, "\n") {
		if entryStart.MatchString(strings.TrimSpace(line)) && current.Len() > 0 {
			raw = append(raw, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	raw = append(raw, current.String())

	entries := []string{}
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if utf8.RuneCountInString(entry) > minEntryLength {
			entries = append(entries, entry)
		}
	}
	return entries
}

func extractContact(text string) map[string]string {
	contact := map[string]string{}

	if email := emailPattern.FindString(text); email != "" {
		contact["email"] = email
	}

	for _, candidate := range phonePattern.FindAllString(text, -1) {
		digits := 0
		for _, r := range candidate {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= 9 && digits <= 15 {
			contact["phone"] = strings.TrimSpace(candidate)
			break
		}
	}

	if linkedin := linkedinPattern.FindString(text); linkedin != "" {
		contact["linkedin"] = linkedin
	}
	if github := githubPattern.FindString(text); github != "" {
		contact["github"] = github
	}

	return contact
}
