package guard

import goSession "github.com/MrEthical07/goSession"

// Kind is the outcome class of a guard decision.
type Kind uint8

const (
	// Render lets the visitor see the destination.
	Render Kind = iota + 1
	// Wait shows a waiting indicator; the session has not settled.
	Wait
	// Redirect sends the visitor to Decision.Location.
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is what a guard tells the caller to do. From is set only for
// redirects to the login route and holds the destination to return to.
type Decision struct {
	Kind     Kind
	Location string
	From     string
}

func renderDecision() Decision { return Decision{Kind: Render} }
func waitDecision() Decision   { return Decision{Kind: Wait} }

func redirectTo(location string) Decision {
	return Decision{Kind: Redirect, Location: location}
}

// Authenticated guards a destination that requires a logged-in user whose
// role is in allowed. target is the destination being requested.
func Authenticated(view goSession.View, allowed goSession.RoleSet, target string, routes Routes) Decision {
	if view.IsLoading() {
		return waitDecision()
	}
	if !view.IsAuthenticated() {
		d := redirectTo(routes.login())
		d.From = target
		return d
	}
	if !allowed.Has(view.User.Role) {
		return redirectTo(routes.defaultLanding())
	}
	return renderDecision()
}

// Anonymous guards a destination only meaningful when logged out, such as
// the login page. Authenticated visitors go to their role's landing.
func Anonymous(view goSession.View, routes Routes) Decision {
	if view.IsLoading() {
		return waitDecision()
	}
	if view.IsAuthenticated() {
		return redirectTo(routes.LandingFor(view.User.Role))
	}
	return renderDecision()
}
