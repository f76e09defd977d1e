package analyses

import "errors"

var (
	ErrNotFound = errors.New("not found")
)

const (
	ErrorCodeExtraction        = "EXTRACTION_ERROR"
	ErrorCodeLLMTimeout        = "LLM_TIMEOUT"
	ErrorCodeLLMRateLimited    = "LLM_RATE_LIMITED"
	ErrorCodeLLMSchemaMismatch = "LLM_SCHEMA_MISMATCH"
	ErrorCodeAuth              = "AUTH_ERROR"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)
