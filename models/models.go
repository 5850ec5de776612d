package models

func (session *Session) CanManageUsers() bool {
	return session.Role == "admin"
}

func (session *Session) CanSendInvites() bool {
	return session.Role == "admin"
}

// CanViewAssessment checks ownership: users only see their own runs.
func (session *Session) CanViewAssessment(assessment *Assessment) bool {
	if session.Role == "admin" {
		return true
	}
	return session.UserID == assessment.UserID
}
