package mail

import "fmt"

func InvitationMessage(to, token, companyName, inviterName, frontendURL string) Message {
	url := fmt.Sprintf("%s/#/invite?token=%s", frontendURL, token)
	html := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1>You're Invited!</h1>
  <p>%s has invited you to join <strong>%s</strong>.</p>
  <p><a href="%s">Accept Invitation</a></p>
  <p style="color: #999; font-size: 14px;">This invitation will expire in 7 days.</p>
</div>`, inviterName, companyName, url)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("You've been invited to join %s", companyName),
		HTML:    html,
	}
}

func PasswordResetMessage(to, token, frontendURL string) Message {
	url := fmt.Sprintf("%s/#/reset-password?token=%s", frontendURL, token)
	html := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1>Reset Your Password</h1>
  <p>We received a request to reset your password. Click the link below to choose a new one.</p>
  <p><a href="%s">Reset Password</a></p>
  <p style="color: #999; font-size: 14px;">This link will expire in 1 hour. If you did not request it, you can ignore this email.</p>
</div>`, url)
	return Message{To: to, Subject: "Reset Your Password", HTML: html}
}

func WelcomeMessage(to, firstName string) Message {
	html := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1>Welcome, %s!</h1>
  <p>Your account is ready. Log in any time to manage your team, settings, and subscription.</p>
</div>`, firstName)
	return Message{To: to, Subject: "Welcome aboard", HTML: html}
}

func PasswordChangedMessage(to string) Message {
	return Message{
		To:      to,
		Subject: "Your password was changed",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <p>Your password was just changed. If this wasn't you, contact your administrator immediately.</p>
</div>`,
	}
}
