package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bgbraido/confluence2md/lib"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var (
	servePort int

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive web front-end",
		Long:  `Start a local web server offering the same inputs as form fields and a one-click fetch-and-download action.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			router := gin.Default()
			router.GET("/", func(c *gin.Context) {
				c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
			})
			router.POST("/api/export", handleExport)

			fmt.Printf("Listening on http://localhost:%d\n", servePort)
			if err := router.Run(fmt.Sprintf(":%d", servePort)); err != nil {
				fail(err)
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
}

// exportRequest carries the form fields of the web front-end. It is the
// same input surface as the fetch command.
type exportRequest struct {
	BaseURL string `form:"url" json:"url"`
	User    string `form:"user" json:"user"`
	Token   string `form:"token" json:"token"`
	PageID  string `form:"page_id" json:"page_id"`
	Title   string `form:"title" json:"title"`
	Space   string `form:"space" json:"space"`
	OutDir  string `form:"out" json:"out"`
	Pandoc  bool   `form:"pandoc" json:"pandoc"`
}

func handleExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateFetchArgs(req.PageID, req.Title, req.Space); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	session, err := lib.NewSession(req.BaseURL, req.User, req.Token, lib.WithLogger(logger))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if err := session.Probe(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	exporter := &lib.Exporter{
		Session:  session,
		Renderer: lib.NewRenderer(req.Pandoc),
		OutDir:   req.OutDir,
	}
	result, err := exporter.Export(c.Request.Context(), lib.PageRef{ID: req.PageID, Title: req.Title, Space: req.Space})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markdown_path":   result.MarkdownPath,
		"attachments_dir": result.AttachmentsDir,
		"markdown":        result.Markdown,
		"preview":         result.Preview,
	})
}

// statusFor maps the error kinds onto HTTP statuses for the web front-end.
func statusFor(err error) int {
	var (
		configErr    *lib.ConfigurationError
		authErr      *lib.AuthenticationError
		notFoundErr  *lib.NotFoundError
		emptyErr     *lib.EmptyContentError
		transportErr *lib.TransportError
	)
	switch {
	case errors.As(err, &configErr):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &emptyErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Confluence &rarr; Markdown</title>
<style>
body { font-family: sans-serif; max-width: 42rem; margin: 2rem auto; padding: 0 1rem; }
label { display: block; margin-top: .75rem; }
input[type=text], input[type=password] { width: 100%; padding: .4rem; }
button { margin-top: 1rem; padding: .5rem 1.5rem; }
pre { background: #f4f4f4; padding: 1rem; overflow-x: auto; white-space: pre-wrap; }
.error { color: #b00; }
</style>
</head>
<body>
<h1>Confluence &rarr; Markdown</h1>
<form id="form">
  <label>Site URL <input type="text" name="url" placeholder="https://your-site.atlassian.net/wiki"></label>
  <label>User email <input type="text" name="user"></label>
  <label>API token <input type="password" name="token"></label>
  <h3>Page selection</h3>
  <label>Page ID (leave empty to use title + space) <input type="text" name="page_id"></label>
  <label>Page title <input type="text" name="title"></label>
  <label>Space key <input type="text" name="space"></label>
  <label>Output directory <input type="text" name="out" value="."></label>
  <label><input type="checkbox" name="pandoc"> Use pandoc for conversion</label>
  <button type="submit">Fetch</button>
</form>
<div id="result"></div>
<script>
document.getElementById("form").addEventListener("submit", async (e) => {
  e.preventDefault();
  const data = Object.fromEntries(new FormData(e.target).entries());
  data.pandoc = data.pandoc === "on";
  const out = document.getElementById("result");
  out.innerHTML = "<p>Fetching&hellip;</p>";
  const res = await fetch("/api/export", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify(data),
  });
  const body = await res.json();
  if (!res.ok) {
    out.innerHTML = '<p class="error"></p>';
    out.firstChild.textContent = "Error: " + body.error;
    return;
  }
  let html = "<p>Saved: <code>" + body.markdown_path + "</code></p>";
  if (body.attachments_dir) {
    html += "<p>Attachments saved under: <code>" + body.attachments_dir + "</code></p>";
  }
  html += "<h3>Markdown</h3><pre></pre>";
  out.innerHTML = html;
  out.querySelector("pre").textContent = body.markdown;
});
</script>
</body>
</html>
`
