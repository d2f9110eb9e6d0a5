package report

// HTML templates for the static report site. Styling is deliberately
// minimal; the reports are operator tooling, not a product surface.

const baseStyle = `
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 64rem; color: #1a1a2e; }
  h1 { font-size: 1.4rem; } h2 { font-size: 1.1rem; margin-top: 2rem; }
  table { border-collapse: collapse; width: 100%; margin: 0.75rem 0; }
  th, td { border: 1px solid #d0d3dc; padding: 0.35rem 0.6rem; text-align: right; font-size: 0.85rem; }
  th { background: #eef0f5; } td:first-child, th:first-child, td.sym, th.sym { text-align: left; }
  .pos { color: #0a7d36; } .neg { color: #b3261e; }
  .muted { color: #777; font-size: 0.8rem; }
`

const momentumTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Momentum {{.Period}}</title>
<style>` + baseStyle + `</style>
</head>
<body>
<h1>Weekly momentum - {{.Period}}</h1>
{{range .Cohorts}}
<h2>{{.Name}} <span class="muted">({{.Ranked}} ranked, {{.Omitted}} omitted)</span></h2>
<table>
<tr><th class="sym">Ticker</th><th>Rank</th><th>Prev</th><th>1y</th><th>1m</th><th>1w</th><th>Streak</th><th>Signal</th></tr>
{{range .Rows}}
<tr>
<td class="sym">{{.Ticker}}</td>
<td>{{.CurrentRank}}</td>
<td>{{if .PreviousRank}}{{.PreviousRank}}{{else}}&mdash;{{end}}</td>
<td class="{{sign .Score}}">{{pct .Score}}</td>
<td class="{{sign .MonthReturn}}">{{pct .MonthReturn}}</td>
<td class="{{sign .WeekReturn}}">{{pct .WeekReturn}}</td>
<td>{{if .Streak}}{{.Streak}}{{else}}&mdash;{{end}}</td>
<td>{{if .Signal}}&#9679;{{end}}</td>
</tr>
{{end}}
</table>
{{if .Dropped}}<p class="muted">Dropped: {{range .Dropped}}{{.Ticker}} (streak {{.Streak}}) {{end}}</p>{{end}}
{{end}}
<p class="muted">Generated {{.GeneratedAt}}</p>
</body>
</html>
`

const performanceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Performance {{.Date}}</title>
<style>` + baseStyle + `</style>
</head>
<body>
<h1>Ledger performance - {{.Date}}</h1>
<p class="muted">{{.Perf.ActiveStocks}} active, {{.Perf.ClosedStocks}} closed{{if .Perf.Orphans}}, {{.Perf.Orphans}} orphan option entries{{end}}</p>

<h2>Stocks</h2>
<table>
<tr><th class="sym">Cohort</th><th class="sym">Action</th><th>Closed</th><th>Avg ann. return</th><th>Avg alpha</th></tr>
{{range .Perf.Stocks}}
<tr>
<td class="sym">{{.Cohort}}</td><td class="sym">{{.UserAction}}</td><td>{{.Count}}</td>
<td class="{{sign .AvgReturn}}">{{pct .AvgReturn}}</td>
<td class="{{sign .AvgAlpha}}">{{if .AlphaCount}}{{pct .AvgAlpha}}{{else}}&mdash;{{end}}</td>
</tr>
{{else}}
<tr><td colspan="5" class="muted">No measurable stock entries yet</td></tr>
{{end}}
</table>

<h2>Option shadows</h2>
<table>
<tr><th class="sym">Cohort</th><th class="sym">Action</th><th class="sym">Profile</th><th>Closed</th><th>Avg ann. return</th></tr>
{{range .Perf.Options}}
<tr>
<td class="sym">{{.Cohort}}</td><td class="sym">{{.UserAction}}</td><td class="sym">{{.Profile}}</td>
<td>{{.Count}}</td><td class="{{sign .AvgReturn}}">{{pct .AvgReturn}}</td>
</tr>
{{else}}
<tr><td colspan="5" class="muted">No measurable option entries yet</td></tr>
{{end}}
</table>

<h2>Open positions</h2>
<table>
<tr><th class="sym">Ticker</th><th class="sym">Cohort</th><th>Signal</th><th>Entry</th><th>Entry price</th><th class="sym">Status</th><th class="sym">Action</th></tr>
{{range .Open}}
<tr>
<td class="sym">{{.Ticker}}</td><td class="sym">{{.Cohort}}</td>
<td>{{date .SignalDate}}</td>
<td>{{if .EntryDate}}{{date .EntryDate}}{{else}}&mdash;{{end}}</td>
<td>{{if .EntryPrice}}{{price .EntryPrice}}{{else}}&mdash;{{end}}</td>
<td class="sym">{{.Status}}</td><td class="sym">{{.UserAction}}</td>
</tr>
{{else}}
<tr><td colspan="7" class="muted">No open positions</td></tr>
{{end}}
</table>

<p class="muted">Generated {{.GeneratedAt}}</p>
</body>
</html>
`

const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>momo reports</title>
<style>` + baseStyle + `</style>
</head>
<body>
<h1>momo reports</h1>
<h2>Momentum</h2>
<ul>
{{range .Momentum}}<li><a href="{{.}}">{{.}}</a></li>
{{else}}<li class="muted">none yet</li>
{{end}}</ul>
<h2>Performance</h2>
<ul>
{{range .Performance}}<li><a href="{{.}}">{{.}}</a></li>
{{else}}<li class="muted">none yet</li>
{{end}}</ul>
</body>
</html>
`
