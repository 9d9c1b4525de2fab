package procedure

// InvocationRequest is built once per HTTP request and not modified afterwards.
type InvocationRequest struct {
	Procedure string
	Parameter string
}

// ErrorEnvelope is the body of every failed call. Params are echoed only when
// they were parsed before the failure.
type ErrorEnvelope struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
	Param1    *string `json:"param1,omitempty"`
	Param2    *string `json:"param2,omitempty"`
}
