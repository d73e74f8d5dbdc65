package codegen

// Error is a code generation limit or scoping violation. The text is the
// diagnostic shown to the user.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrTooManyConstants = Error("Too many constants in one chunk.")
	ErrTooManyLocals    = Error("Too many local variables in function.")
	ErrTooManyUpvalues  = Error("Too many closure variables in function.")
	ErrJumpTooLarge     = Error("Too much code to jump over.")
	ErrLoopTooLarge     = Error("Loop body too large.")
	ErrOwnInitializer   = Error("Can't read local variable in its own initializer.")
	ErrRedeclared       = Error("Already a variable with this name in this scope.")
)
