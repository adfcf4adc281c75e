package render

import (
	"fmt"
	"html/template"
	"io"

	"cohort_report_service/internal/domain/report"
)

// ManagerOption is one entry of the admin-only manager dropdown.
type ManagerOption struct {
	ID    int64
	Label string
}

// CohortOption is one entry of the cohort dropdown.
type CohortOption struct {
	ID   int64
	Name string
}

// PageData feeds the interactive report page template.
type PageData struct {
	CourseID      int64
	Report        string // "recent" or "incomplete"
	CohortID      int64
	SinceDays     int
	YearsBack     int
	Query         string
	ManagerUserID int64
	ViewerName    string
	ViewerEmail   string
	IsAdmin       bool
	Managers      []ManagerOption
	Cohorts       []CohortOption
	Recent        []report.RecentRow
	Incomplete    []report.IncompleteRow
	EmailStatus   string // "", "success" or "fail"
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"notComplete": func(v string) bool { return v == report.NotComplete },
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Cohort Course Reports</title>
<meta name="viewport" content="width=device-width,initial-scale=1"/>
<style>
  :root { --bg:#f6f7fb; --card:#fff; --text:#0f172a; --muted:#6b7280; --border:#e5e7eb; --accent2:#111827; --ok:#16a34a; --err:#b91c1c; }
  * { box-sizing:border-box }
  body { margin:0; font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif; color:var(--text); background:var(--bg); }
  header { background:#0ea5e9; color:#fff; padding:20px; }
  header h1 { margin:0; font-size:20px; }
  .wrap { max-width:1200px; margin:0 auto; padding:16px; }
  .filters, .panel, .alert { background:var(--card); border:1px solid var(--border); border-radius:14px; margin:16px 0; }
  .filters { padding:16px; }
  .grid { display:grid; grid-template-columns:repeat(auto-fit,minmax(220px,1fr)); gap:12px; }
  label { font-size:12px; color:var(--muted); display:block; margin-bottom:6px; }
  input, select { width:100%; padding:10px 12px; border:1px solid var(--border); border-radius:10px; background:#fff; color:var(--text); }
  button, .tab { border:0; border-radius:10px; padding:10px 14px; cursor:pointer; background:var(--accent2); color:#fff; }
  .secondary { background:#374151; }
  .tabs { display:flex; gap:8px; padding:12px; border-bottom:1px solid var(--border); }
  .tab { background:#e5e7eb; color:#111; }
  .tab.active { background:#111827; color:#fff; }
  .panel .inner { padding:16px; }
  table { width:100%; border-collapse:collapse; }
  th, td { text-align:left; padding:10px; border-bottom:1px solid var(--border); font-size:14px; }
  th { user-select:none; cursor:pointer; position:sticky; top:0; background:#fff; z-index:1; }
  .muted { color:var(--muted); font-size:12px; }
  .pill { display:inline-block; padding:4px 8px; border-radius:999px; background:#eef2ff; color:#3730a3; font-size:12px; }
  .okpill { background:#dcfce7; color:#166534; }
  .warn { background:#fee2e2; color:#991b1b; }
  .toolbar { display:flex; gap:10px; align-items:center; justify-content:space-between; margin-bottom:10px; flex-wrap:wrap; }
  .right { margin-left:auto; }
  .alert { padding:12px 16px; }
  .alert.ok { border-left:6px solid var(--ok); }
  .alert.err { border-left:6px solid var(--err); }
</style>
</head>
<body>
<header>
  <div class="wrap">
    <h1>Cohort Course Reports</h1>
    <div class="muted">Course ID: <b>{{.CourseID}}</b> &bull; Viewer: <b>{{.ViewerName}}</b> {{if .IsAdmin}}<span class="pill okpill">Admin</span>{{end}}</div>
  </div>
</header>

<div class="wrap">

  {{if eq .EmailStatus "success"}}
    <div class="alert ok">Email sent to <strong>{{.ViewerEmail}}</strong> with CSV attached.</div>
  {{else if eq .EmailStatus "fail"}}
    <div class="alert err">Email could not be sent. Please check mail settings and the configured sender.</div>
  {{end}}

  <form class="filters" method="get" id="filtersForm">
    <input type="hidden" name="report" id="reportInput" value="{{.Report}}">
    <div class="grid">
      <div>
        <label>Course ID</label>
        <input type="number" name="courseid" value="{{.CourseID}}" min="1" required>
      </div>

      {{if and .IsAdmin .Managers}}
      <div>
        <label>Manager (admin only)</label>
        <select name="manager_userid" onchange="document.getElementById('filtersForm').submit()">
          <option value="0">&mdash; All managers &mdash;</option>
          {{$selected := .ManagerUserID}}
          {{range .Managers}}
            <option value="{{.ID}}" {{if eq .ID $selected}}selected{{end}}>{{.Label}}</option>
          {{end}}
        </select>
      </div>
      {{end}}

      <div>
        <label>Cohort</label>
        <select name="cohortid" onchange="document.getElementById('filtersForm').submit()">
          <option value="0">&mdash; All visible cohorts &mdash;</option>
          {{$cid := .CohortID}}
          {{range .Cohorts}}
            <option value="{{.ID}}" {{if eq .ID $cid}}selected{{end}}>{{.ID}} &mdash; {{.Name}}</option>
          {{end}}
        </select>
      </div>

      <div>
        <label>Days back (Recent Enrollments)</label>
        <input type="number" name="since_days" value="{{.SinceDays}}" min="1">
      </div>

      <div>
        <label>Years back (Not Completed)</label>
        <input type="number" name="years_back" value="{{.YearsBack}}" min="1">
      </div>

      <div>
        <label>Search (client-side)</label>
        <input type="text" name="q" id="q" value="{{.Query}}" placeholder="Type to filter rows...">
      </div>
    </div>
    <div style="margin-top:10px">
      <button type="submit">Apply Filters</button>
    </div>
  </form>

  <div class="panel">
    <div class="tabs">
      <button type="button" class="tab {{if eq .Report "recent"}}active{{end}}" onclick="switchReport('recent')">Recent Enrollments</button>
      <button type="button" class="tab {{if eq .Report "incomplete"}}active{{end}}" onclick="switchReport('incomplete')">Not Completed</button>
      <div class="right">
        <form method="post" action="/report/email" style="display:inline" onsubmit="return confirm('Send this report to your email with a CSV attachment?')">
          <input type="hidden" name="report" value="{{.Report}}">
          <input type="hidden" name="courseid" value="{{.CourseID}}">
          <input type="hidden" name="cohortid" value="{{.CohortID}}">
          <input type="hidden" name="since_days" value="{{.SinceDays}}">
          <input type="hidden" name="years_back" value="{{.YearsBack}}">
          <input type="hidden" name="manager_userid" value="{{.ManagerUserID}}">
          <button type="submit" class="secondary">Email me this report (CSV)</button>
        </form>
      </div>
    </div>

    <div class="inner">
      {{if not .Cohorts}}
        <p class="muted">No cohorts available for your account. If you expect access, ensure the viewer holds the cohort manager role within the target cohorts, or view as a site admin.</p>
      {{end}}

      <section id="recent" {{if ne .Report "recent"}}style="display:none"{{end}}>
        <div class="toolbar">
          <div><span class="pill">Showing: Recent enrollments (last {{.SinceDays}} days)</span></div>
          <div class="muted right">{{len .Recent}} row(s)</div>
        </div>
        <div style="overflow:auto; max-height:65vh;">
          <table id="recentTable">
            <thead>
              <tr>
                <th data-col="cohortname">Cohort</th>
                <th data-col="lastname">Last</th>
                <th data-col="firstname">First</th>
                <th data-col="email">Email</th>
                <th data-col="enrollment_date">Enroll Date</th>
                <th data-col="days_since">Days Since</th>
                <th data-col="completed_date">Completed</th>
              </tr>
            </thead>
            <tbody>
              {{range .Recent}}
                <tr>
                  <td><span class="pill">{{.CohortName}}</span></td>
                  <td>{{.LastName}}</td>
                  <td>{{.FirstName}}</td>
                  <td>{{.Email}}</td>
                  <td>{{.EnrollmentDate}}</td>
                  <td>{{.DaysSince}}</td>
                  <td>
                    {{if notComplete .CompletedDate}}<span class="pill warn">Not Complete</span>
                    {{else}}<span class="pill okpill">{{.CompletedDate}}</span>{{end}}
                  </td>
                </tr>
              {{end}}
            </tbody>
          </table>
        </div>
      </section>

      <section id="incomplete" {{if ne .Report "incomplete"}}style="display:none"{{end}}>
        <div class="toolbar">
          <div><span class="pill warn">Showing: Not Completed</span></div>
          <div class="muted right">{{len .Incomplete}} row(s)</div>
        </div>
        <div style="overflow:auto; max-height:65vh;">
          <table id="incompleteTable">
            <thead>
              <tr>
                <th data-col="cohortname">Cohort</th>
                <th data-col="lastname">Last</th>
                <th data-col="firstname">First</th>
                <th data-col="email">Email</th>
                <th data-col="enrollment_date">Latest Enroll</th>
                <th data-col="days_since">Days Since</th>
              </tr>
            </thead>
            <tbody>
              {{range .Incomplete}}
                <tr>
                  <td><span class="pill">{{.CohortName}}</span></td>
                  <td>{{.LastName}}</td>
                  <td>{{.FirstName}}</td>
                  <td>{{.Email}}</td>
                  <td>{{.EnrollmentDate}}</td>
                  <td>{{if .DaysSince.Valid}}{{.DaysSince.Int64}}{{end}}</td>
                </tr>
              {{end}}
            </tbody>
          </table>
        </div>
      </section>
    </div>
  </div>
</div>

<script>
function switchReport(which) {
  document.getElementById('reportInput').value = which;
  document.getElementById('recent').style.display     = (which === 'recent') ? '' : 'none';
  document.getElementById('incomplete').style.display = (which === 'incomplete') ? '' : 'none';
  document.querySelectorAll('.tab').forEach(t=>t.classList.remove('active'));
  const idx = (which==='recent') ? 0 : 1;
  document.querySelectorAll('.tab')[idx].classList.add('active');
  const url = new URL(window.location.href);
  url.searchParams.set('report', which);
  history.replaceState(null, '', url.toString());
}
(function(){
  const q = document.getElementById('q');
  const filterRows = () => {
    const term = (q.value || '').toLowerCase();
    const active = (document.getElementById('recent').style.display !== 'none') ? 'recentTable' : 'incompleteTable';
    const tbody = document.querySelector('#'+active+' tbody');
    if (!tbody) return;
    [...tbody.rows].forEach(tr=>{
      tr.style.display = tr.innerText.toLowerCase().includes(term) ? '' : 'none';
    });
  };
  if (q) {
    q.addEventListener('input', filterRows);
    filterRows();
  }
})();
document.querySelectorAll('th[data-col]').forEach(th=>{
  th.addEventListener('click', ()=>{
    const table = th.closest('table');
    const idx = [...th.parentNode.children].indexOf(th);
    const isNumber = th.getAttribute('data-col').match(/days_since/);
    const rows = [...table.tBodies[0].rows];
    const asc = th.getAttribute('data-sort') !== 'asc';
    rows.sort((a,b)=>{
      const A = a.cells[idx].innerText.trim();
      const B = b.cells[idx].innerText.trim();
      if (isNumber) {
        const nA = parseInt(A||'0',10), nB = parseInt(B||'0',10);
        return asc ? (nA - nB) : (nB - nA);
      }
      return asc ? A.localeCompare(B) : B.localeCompare(A);
    });
    const frag = document.createDocumentFragment();
    rows.forEach(r=>frag.appendChild(r));
    table.tBodies[0].appendChild(frag);
    th.setAttribute('data-sort', asc ? 'asc' : 'desc');
    [...th.parentNode.children].forEach(o=>{ if(o!==th) o.removeAttribute('data-sort'); });
  });
});
</script>
</body>
</html>`))

// ReportPage writes the interactive report page.
func ReportPage(w io.Writer, data PageData) error {
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render report page: %w", err)
	}
	return nil
}

var setupTemplate = template.Must(template.New("setup").Parse(`<!doctype html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>Cohort Course Reports</title>
<style>body{font-family:Arial,Helvetica,sans-serif;padding:24px;background:#f6f7fb;color:#222} .card{max-width:960px;margin:24px auto;background:#fff;border:1px solid #e5e7eb;border-radius:12px} .card h1{margin:0;padding:20px;border-bottom:1px solid #eee;font-size:20px} .card .content{padding:20px} label{display:block;margin:.5rem 0 .25rem;color:#444} input,select{width:100%;max-width:380px;padding:8px 10px;border:1px solid #d1d5db;border-radius:8px} button{margin-top:12px;padding:10px 14px;border:0;border-radius:8px;background:#111827;color:#fff;cursor:pointer} .note{color:#555;margin-top:12px}</style></head><body>
<div class="card"><h1>Set up your report</h1><div class="content">
<form method="get">
  <label>Course ID (required)</label>
  <input type="number" name="courseid" min="1" required>
  <label>Report</label>
  <select name="report">
    <option value="recent">Recent Enrollments</option>
    <option value="incomplete">Not Completed</option>
  </select>
  <label>Days back (for Recent)</label>
  <input type="number" name="since_days" min="1" value="30">
  <button type="submit">Open Reports</button>
  <p class="note">Tip: Once loaded, you can toggle between reports at the top, filter by cohort, and live-search the results.</p>
</form></div></div></body></html>`))

// SetupPage writes the courseid entry form shown when no course is selected.
func SetupPage(w io.Writer) error {
	if err := setupTemplate.Execute(w, nil); err != nil {
		return fmt.Errorf("failed to render setup page: %w", err)
	}
	return nil
}
