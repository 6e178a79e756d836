package roster

// Config points at the roster files issued by the institute. Empty
// paths disable roster checks for that role.
type Config struct {
	StudentRosterFile string `env:"STUDENT_ROSTER_FILE"`
	TeacherRosterFile string `env:"TEACHER_ROSTER_FILE"`
}
