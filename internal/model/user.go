package model

// UserRole 由身份服务签发在 token 中，本服务只读取
type UserRole string

const (
	Learner    UserRole = "learner"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)
