package scenario

import "github.com/wondertwin-ai/blogcheck/internal/browser"

// Goto opens path relative to the target.
func Goto(path string) Step { return Step{Action: ActionGoto, Value: path} }

// Reload reloads the current page.
func Reload() Step { return Step{Action: ActionReload} }

// Fill types value into the element loc resolves to.
func Fill(loc browser.Locator, value string) Step {
	return Step{Action: ActionFill, Locator: &loc, Value: value}
}

// Click clicks the element loc resolves to.
func Click(loc browser.Locator) Step { return Step{Action: ActionClick, Locator: &loc} }

// ExpectVisible asserts that loc becomes visible.
func ExpectVisible(loc browser.Locator) Step {
	return Step{Action: ActionExpectVisible, Locator: &loc}
}

// ExpectHidden asserts that loc becomes hidden or absent.
func ExpectHidden(loc browser.Locator) Step {
	return Step{Action: ActionExpectHidden, Locator: &loc}
}

// AcceptDialog accepts the next dialog. It must precede the step that
// raises the dialog.
func AcceptDialog() Step { return Step{Action: ActionAcceptDialog} }

// DismissDialog dismisses the next dialog.
func DismissDialog() Step { return Step{Action: ActionDismissDialog} }

// Login signs in through the login form.
func Login(username, password string) Step {
	return Step{Action: ActionLogin, Username: username, Password: password}
}

// Logout clicks the logout button.
func Logout() Step { return Step{Action: ActionLogout} }

// Named returns a copy of s with a display name.
func (s Step) Named(name string) Step {
	s.Name = name
	return s
}
