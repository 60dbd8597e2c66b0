package guard

import goSession "github.com/MrEthical07/goSession"

// Routes names the destinations the policies redirect to.
type Routes struct {
	// Root is the application root and the fallback for unmapped roles.
	Root string
	// Login receives unauthenticated visitors of protected destinations.
	Login string
	// DefaultLanding receives authenticated visitors whose role is not
	// allowed at the requested destination.
	DefaultLanding string
	// Landing is the per-role home used after login and for anonymous-only
	// destinations.
	Landing map[goSession.Role]string
}

// DefaultRoutes returns the dashboard layout: one dashboard per role under
// /dashboard, login at /login, everything else falling back to /.
func DefaultRoutes() Routes {
	return Routes{
		Root:           "/",
		Login:          "/login",
		DefaultLanding: "/",
		Landing: map[goSession.Role]string{
			goSession.RoleStudent:    "/dashboard/student",
			goSession.RoleInstructor: "/dashboard/instructor",
			goSession.RoleAdmin:      "/dashboard/admin",
		},
	}
}

// LandingFor returns the home of role, or Root when the table has none.
func (r Routes) LandingFor(role goSession.Role) string {
	if dest, ok := r.Landing[role]; ok && dest != "" {
		return dest
	}
	return r.root()
}

func (r Routes) root() string {
	if r.Root == "" {
		return "/"
	}
	return r.Root
}

func (r Routes) login() string {
	if r.Login == "" {
		return "/login"
	}
	return r.Login
}

func (r Routes) defaultLanding() string {
	if r.DefaultLanding == "" {
		return r.root()
	}
	return r.DefaultLanding
}
