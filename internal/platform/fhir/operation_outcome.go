package fhir

// OperationOutcome severity levels.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes used by this server.
const (
	IssueTypeInvalid      = "invalid"
	IssueTypeStructure    = "structure"
	IssueTypeRequired     = "required"
	IssueTypeNotFound     = "not-found"
	IssueTypeProcessing   = "processing"
	IssueTypeSecurity     = "security"
	IssueTypeLogin        = "login"
	IssueTypeThrottled    = "throttled"
	IssueTypeNotSupported = "not-supported"
	IssueTypeBusinessRule = "business-rule"
	IssueTypeException    = "exception"
	IssueTypeTransient    = "transient"
	IssueTypeCodeInvalid  = "code-invalid"
)

// IssueTypeForStatus picks the issue type for an HTTP error status.
func IssueTypeForStatus(status int) string {
	switch {
	case status == 400:
		return IssueTypeInvalid
	case status == 401:
		return IssueTypeLogin
	case status == 403:
		return IssueTypeSecurity
	case status == 404:
		return IssueTypeNotFound
	case status == 413:
		return IssueTypeStructure
	case status == 429:
		return IssueTypeThrottled
	case status == 503:
		return IssueTypeTransient
	case status >= 500:
		return IssueTypeException
	default:
		return IssueTypeProcessing
	}
}
