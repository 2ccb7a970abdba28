package common

// ValidateText checks the text fields of a submission, message first.
// Inputs are expected to be normalized with NormalizeText.
func ValidateText(nickname, message string) error {
	if message == "" {
		return ErrEmptyMessage
	}
	if TextLength(message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if TextLength(nickname) > MaxNicknameLength {
		return ErrNicknameTooLong
	}
	return nil
}
