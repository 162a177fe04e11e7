package email

import (
	"fmt"
	"html"
)

const verificationSubject = "Bar & Bartender - Email Verification Code"

// VerificationMessage arma el correo con el codigo de registro.
func VerificationMessage(to, code string) Message {
	text := fmt.Sprintf(`Hello!

Thank you for registering with Bar & Bartender!

Your verification code is: %s

This code will expire in 10 minutes.

If you did not request this code, please ignore this email.

Best regards,
Bar & Bartender Team
`, code)

	body := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2c3e50;">Bar &amp; Bartender - Email Verification</h2>
        <p>Hello!</p>
        <p>Thank you for registering with Bar &amp; Bartender!</p>
        <div style="background-color: #f4f4f4; padding: 20px; text-align: center; margin: 20px 0; border-radius: 5px;">
            <p style="margin: 0; font-size: 14px; color: #666;">Your verification code is:</p>
            <h1 style="margin: 10px 0; font-size: 32px; color: #2c3e50; letter-spacing: 5px;">%s</h1>
        </div>
        <p style="font-size: 12px; color: #999;">This code will expire in 10 minutes.</p>
        <p>If you did not request this code, please ignore this email.</p>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="font-size: 12px; color: #999;">Best regards,<br>Bar &amp; Bartender Team</p>
    </div>
</body>
</html>`, html.EscapeString(code))

	return Message{
		To:      to,
		Subject: verificationSubject,
		Text:    text,
		HTML:    body,
	}
}
