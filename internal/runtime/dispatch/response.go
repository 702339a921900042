package dispatch

// Response is the terminal value a backend returned for a call, relayed
// unchanged. Backends conventionally answer {status, message, data}.
type Response struct {
	Value any
}

// Fields returns the response as an object when it is one.
func (r Response) Fields() (map[string]any, bool) {
	m, ok := r.Value.(map[string]any)
	return m, ok
}

// Status returns the status field of an object response.
func (r Response) Status() string {
	if m, ok := r.Fields(); ok {
		if s, ok := m["status"].(string); ok {
			return s
		}
	}
	return ""
}

// Message returns the message field of an object response.
func (r Response) Message() string {
	if m, ok := r.Fields(); ok {
		return messageOf(m)
	}
	return ""
}

// Data returns the data field of an object response. A response that is not
// an object is returned whole.
func (r Response) Data() (any, bool) {
	m, ok := r.Fields()
	if !ok {
		return r.Value, r.Value != nil
	}
	data, ok := m["data"]
	return data, ok
}

// StatusCode returns the statusCode field of an object response, or zero.
func (r Response) StatusCode() int {
	if m, ok := r.Fields(); ok {
		if code, ok := toInt(m["statusCode"]); ok {
			return code
		}
	}
	return 0
}

// remoteFailure reports a response that carries an error status code.
func (r Response) remoteFailure(op string) *RemoteError {
	code := r.StatusCode()
	if code < 400 {
		return nil
	}
	m, _ := r.Fields()
	msg := messageOf(m)
	if msg == "" {
		msg = "remote error"
	}
	return &RemoteError{Operation: op, StatusCode: code, Message: msg, Details: r.Value}
}
