package entity

// DomainError 领域层错误
type DomainError struct {
	msg string
}

// NewDomainError 创建领域错误
func NewDomainError(msg string) *DomainError {
	return &DomainError{msg: msg}
}

func (e *DomainError) Error() string {
	return e.msg
}
