package service

// HTML bodies share one shell so the rendered mails look consistent. The
// Body is injected pre-escaped by the renderer.

const mailShellTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f6f8;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:24px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;overflow:hidden;">
        <tr><td style="background:{{.AccentColor}};padding:20px 32px;">
          <h1 style="margin:0;color:#ffffff;font-size:20px;">{{.Heading}}</h1>
        </td></tr>
        <tr><td style="padding:28px 32px;color:#333333;font-size:14px;line-height:1.6;">
          {{if .Institution}}<p style="margin-top:0;">Dear {{.Institution}} team,</p>{{end}}
          <div>{{.Body}}</div>
          <p style="margin-bottom:0;">Best regards,<br>The IntelliLearn Team</p>
        </td></tr>
        <tr><td style="background:#f4f6f8;padding:16px 32px;color:#8a94a6;font-size:12px;">
          This is an automated message from the IntelliLearn administration system.
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`
