package models

// AdviceSection is one analysis card: a heading, a short summary and the
// supporting bullet points in the order the model produced them.
type AdviceSection struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	BulletPoints []string `json:"bullet_points"`
}

type AIUseCase struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	ImplementationIdea string `json:"implementation_idea"`
}

// AdviceResponse is the structured result of one advice request. All four
// fields are required; AIUseCases may be empty but is never absent.
type AdviceResponse struct {
	ProjectOverview  AdviceSection `json:"project_overview"`
	FrontendAnalysis AdviceSection `json:"frontend_analysis"`
	BackendAnalysis  AdviceSection `json:"backend_analysis"`
	AIUseCases       []AIUseCase   `json:"ai_use_cases"`
}

// Sections returns the three analysis sections in display order.
func (r *AdviceResponse) Sections() []AdviceSection {
	return []AdviceSection{r.ProjectOverview, r.FrontendAnalysis, r.BackendAnalysis}
}
