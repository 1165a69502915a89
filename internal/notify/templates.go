package notify

import "html/template"

var acknowledgementTmpl = template.Must(template.New("ack").Parse(`
<h2>Thank you for your submission, {{.Name}}!</h2>
<p>Your workflow automation request has been received and will be reviewed by the team.</p>
<table style="border-collapse: collapse; margin: 16px 0;">
  <tr>
    <td style="padding: 8px; font-weight: bold;">Process:</td>
    <td style="padding: 8px;">{{.ProcessName}}</td>
  </tr>
  <tr>
    <td style="padding: 8px; font-weight: bold;">Department:</td>
    <td style="padding: 8px;">{{.Department}}</td>
  </tr>
</table>
<p>We'll keep you updated on the status of your request.</p>
<p style="color: #666; font-size: 12px;">Workflow Automation Tracker</p>
`))

var adminAlertTmpl = template.Must(template.New("admin").Parse(`
<h2>New Workflow Submission</h2>
<table style="border-collapse: collapse; margin: 16px 0;">
  <tr>
    <td style="padding: 8px; font-weight: bold;">Submitted By:</td>
    <td style="padding: 8px;">{{.Name}} ({{.Email}})</td>
  </tr>
  <tr>
    <td style="padding: 8px; font-weight: bold;">Process:</td>
    <td style="padding: 8px;">{{.ProcessName}}</td>
  </tr>
  <tr>
    <td style="padding: 8px; font-weight: bold;">Department:</td>
    <td style="padding: 8px;">{{.Department}}</td>
  </tr>
</table>
<p><a href="{{.DashboardURL}}">View in Dashboard</a></p>
`))
