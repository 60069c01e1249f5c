package model

// GenerationRequest is one user submission.
type GenerationRequest struct {
	RawQuestion    string
	TargetLanguage string
	BackendIDs     []string
	Classify       bool
}

// GenerationResult is the outcome for one backend slot of a run.
//
// After generation exactly one of Code or Error is set. When generation
// succeeded but the explanation did not, Code and Error are both set and
// Explanation is nil. Classification never touches Code, Explanation or Error.
type GenerationResult struct {
	BackendID       string      `json:"backend_id"`
	Code            *string     `json:"code,omitempty"`
	Explanation     *string     `json:"explanation,omitempty"`
	Error           *Error      `json:"error,omitempty"`
	TimeComplexity  *Complexity `json:"time_complexity,omitempty"`
	SpaceComplexity *Complexity `json:"space_complexity,omitempty"`
	ComplexityError *Error      `json:"complexity_error,omitempty"`
}

func (r GenerationResult) HasCode() bool {
	return r.Code != nil
}

func (r GenerationResult) Succeeded() bool {
	return r.Code != nil && r.Explanation != nil && r.Error == nil
}

func (r GenerationResult) Partial() bool {
	return r.Code != nil && r.Error != nil
}

// ErrorResults builds one failed slot per backend id, in order.
func ErrorResults(backendIDs []string, kind ErrorKind, message string) []GenerationResult {
	results := make([]GenerationResult, len(backendIDs))
	for i, id := range backendIDs {
		results[i] = GenerationResult{
			BackendID: id,
			Error:     NewError(kind, id, message),
		}
	}
	return results
}
