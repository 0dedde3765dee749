package generator

import "github.com/avolab/guideline-api/internal/model"

// DefaultGuidelineDocument is the fixed fallback input for stage 1 when a
// job was created without guideline text.
const DefaultGuidelineDocument = `Software Development Guidelines

1. Code Quality
- All code must go through code review before merging
- Use linters and formatters to keep a consistent coding style
- Variable and function names must be clear and meaningful
- Complex logic requires sufficient comments

2. Testing
- Keep unit test coverage at 80% or higher
- Verify system behavior end to end with integration tests
- Run automated tests in the CI/CD pipeline
- Hold test code to the same quality bar as production code

3. Documentation
- Generate API documentation automatically
- Keep the README up to date
- Record architecture decisions as ADRs
- Write operations and troubleshooting guides

4. Security
- Manage sensitive values through environment variables
- Run vulnerability scans regularly
- Enforce authentication and authorization
- Require HTTPS everywhere`

// sourceDefault tags payloads produced without a live generation backend.
const sourceDefault = "default"

// defaultSummary is the documented degradation payload for stage 1.
func defaultSummary() *model.Summary {
	return &model.Summary{
		Title:   "Software Development Guidelines Summary",
		Content: "The guidelines cover the core principles of software development: code quality, testing, documentation and security.",
		KeyPoints: []string{
			"Code review is mandatory",
			"Test coverage of 80% or higher",
			"Automated API documentation",
		},
		WordCount: 150,
		Source:    sourceDefault,
	}
}

// defaultChecklist is the documented degradation payload for stage 2.
func defaultChecklist() *model.Checklist {
	return &model.Checklist{
		Categories: []model.ChecklistCategory{
			{
				Name: "Code Quality",
				Items: []model.ChecklistItem{
					{ID: 1, Text: "Has the code been reviewed?", Required: true},
					{ID: 2, Text: "Do all linter rules pass?", Required: true},
					{ID: 3, Text: "Are variable names clear?", Required: false},
				},
			},
			{
				Name: "Testing",
				Items: []model.ChecklistItem{
					{ID: 4, Text: "Are unit tests written?", Required: true},
					{ID: 5, Text: "Have integration tests run?", Required: true},
				},
			},
			{
				Name: "Documentation",
				Items: []model.ChecklistItem{
					{ID: 6, Text: "Is the API documentation updated?", Required: true},
					{ID: 7, Text: "Is the README current?", Required: false},
				},
			},
		},
		TotalItems:    7,
		RequiredItems: 5,
		Source:        sourceDefault,
	}
}
