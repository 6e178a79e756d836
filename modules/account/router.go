// Package account exposes the credential flows over HTTP: registration,
// login, OTP verification and password reset, mirrored for students and
// teachers.
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which role families to mount. Each is optional
// and only mounted if provided.
type RouterOptions struct {
	Students Mountable
	Teachers Mountable
}

// Router mounts the role route families.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/", account.Router(account.RouterOptions{
//	    Students: studentHandler,
//	    Teachers: teacherHandler,
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Students != nil {
		r.Mount("/students", opts.Students.Handle())
	}
	if opts.Teachers != nil {
		r.Mount("/teachers", opts.Teachers.Handle())
	}

	return r
}
