package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeShirley/sentry-cli/internal/testutil/mockhttp"
	"github.com/JakeShirley/sentry-cli/pkg/clierror"
	"github.com/JakeShirley/sentry-cli/test/integration/testutils"
)

const (
	appDebugID    = "3249d99d-0c40-4931-8610-f4e4fb0b6936-1"
	libfooDebugID = "dfb8e43a-f242-3d73-a453-aeb6a777ef75"
)

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_UploadsNewFiles(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	logStep(t, 1, "Mocking an empty project with two upload endpoints")
	list := testutils.MockEndpoint(t, srv,
		testutils.New("GET", debugFilesPath, http.StatusOK).
			WithHeaderMatcher("Authorization", mockhttp.Exact("Bearer "+testToken)).
			WithHeaderMatcher("User-Agent", mockhttp.Regex(`^sentry-cli/`)).
			WithResponseFile("debug_files/list_empty.json"))
	uploadApp := testutils.MockEndpoint(t, srv,
		testutils.New("POST", debugFilesPath, http.StatusCreated).
			WithMatcher(mockhttp.Regex(`filename="app\.sym"`)).
			WithResponseFile("debug_files/upload_app.json").
			Expect(1))
	uploadLib := testutils.MockEndpoint(t, srv,
		testutils.New("POST", debugFilesPath, http.StatusCreated).
			WithMatcher(mockhttp.Regex(`filename="libfoo\.sym"`)).
			WithResponseFile("debug_files/upload_libfoo.json").
			Expect(1))

	logStep(t, 2, "Running upload-dif")
	result := runCLI(t, uploadArgs(srv, symbolsDir)...)
	result.AssertSuccess(t)
	result.AssertContains(t, "Found 2 debug information files")
	result.AssertContains(t, appDebugID)
	result.AssertContains(t, "Uploaded 2 missing debug information files")
	result.AssertNotContains(t, "Skipped")

	logStep(t, 3, "Verifying every endpoint was hit as expected")
	list.Assert(t)
	uploadApp.Assert(t)
	uploadLib.Assert(t)
	assert.Empty(t, srv.Requests().Unmatched())
	logOK(t, "both symbol files uploaded")
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_SkipsAlreadyUploaded(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	list := testutils.MockEndpoint(t, srv,
		testutils.New("GET", debugFilesPath, http.StatusOK).
			WithResponseFile("debug_files/list_existing.json"))
	uploadApp := testutils.MockEndpoint(t, srv,
		testutils.New("POST", debugFilesPath, http.StatusCreated).
			WithMatcher(mockhttp.Regex(`filename="app\.sym"`)).
			Expect(0))
	uploadLib := testutils.MockEndpoint(t, srv,
		testutils.New("POST", debugFilesPath, http.StatusCreated).
			WithMatcher(mockhttp.Regex(`filename="libfoo\.sym"`)).
			WithResponseFile("debug_files/upload_libfoo.json"))

	result := runCLI(t, uploadArgs(srv, symbolsDir)...)
	result.AssertSuccess(t)
	result.AssertContains(t, "Skipped 1 already uploaded file")
	result.AssertContains(t, "Uploaded 1 missing debug information file\n")

	list.Assert(t)
	uploadApp.Assert(t)
	uploadLib.Assert(t)
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_JSONOutput(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	testutils.MockEndpoint(t, srv,
		testutils.New("GET", debugFilesPath, http.StatusOK).
			WithResponseFile("debug_files/list_existing.json"))
	testutils.MockEndpoint(t, srv,
		testutils.New("POST", debugFilesPath, http.StatusCreated).
			WithResponseFile("debug_files/upload_libfoo.json"))

	result := runCLI(t, uploadArgs(srv, "-o", "json", symbolsDir)...)
	result.AssertSuccess(t)

	var out struct {
		Found []struct {
			DebugID string `json:"debug_id"`
			Type    string `json:"type"`
		} `json:"found"`
		Skipped  []struct{ DebugID string `json:"debug_id"` } `json:"skipped"`
		Uploaded []struct{ DebugID string `json:"debugId"` } `json:"uploaded"`
	}
	result.AssertJSON(t, &out)

	require.Len(t, out.Found, 2)
	assert.Equal(t, "breakpad", out.Found[0].Type)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, appDebugID, out.Skipped[0].DebugID)
	require.Len(t, out.Uploaded, 1)
	assert.Equal(t, libfooDebugID, out.Uploaded[0].DebugID)
	require.NoError(t, srv.Verify())
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_Unauthorized(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	list := testutils.MockEndpoint(t, srv,
		testutils.New("GET", debugFilesPath, http.StatusUnauthorized).
			WithResponseFile("errors/unauthorized.json"))
	upload := testutils.MockEndpoint(t, srv,
		testutils.New("POST", debugFilesPath, http.StatusCreated).
			Expect(0))

	result := runCLI(t, uploadArgs(srv, symbolsDir)...)
	result.AssertError(t)
	result.AssertExitCode(t, clierror.ExitAuth)
	assert.Contains(t, result.Err.Error(), "Invalid token")

	list.Assert(t)
	upload.Assert(t)
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_NoTokenSendsNoAuthorization(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	list := testutils.MockEndpoint(t, srv,
		testutils.New("GET", debugFilesPath, http.StatusUnauthorized).
			WithHeaderMatcher("Authorization", mockhttp.Missing()).
			WithResponseBody(`{"detail":"Authentication credentials were not provided."}`))

	result := runCLI(t, "upload-dif", "--url", srv.URL(), "--org", testOrg, "--project", testProject, symbolsDir)
	result.AssertExitCode(t, clierror.ExitAuth)
	assert.Contains(t, result.Err.Error(), "credentials were not provided")
	list.Assert(t)
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_ProjectNotFound(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	list := testutils.MockEndpoint(t, srv,
		testutils.New("GET", debugFilesPath, http.StatusNotFound).
			WithResponseBody(`{"detail":"The requested resource does not exist"}`))

	result := runCLI(t, uploadArgs(srv, symbolsDir)...)
	result.AssertExitCode(t, clierror.ExitNotFound)
	assert.Contains(t, result.Err.Error(), "project 'acme/web' not found")
	list.Assert(t)
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_MissingResponseFixture(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	t.Log("Testing that a missing response file surfaces as a connection error")
	list := testutils.MockEndpoint(t, srv,
		testutils.New("GET", debugFilesPath, http.StatusOK).
			WithResponseFile("debug_files/does_not_exist.json").
			ExpectAtLeast(1))

	result := runCLI(t, uploadArgs(srv, symbolsDir)...)
	result.AssertError(t)
	result.AssertExitCode(t, clierror.ExitGeneral)
	assert.Equal(t, clierror.CodeConnectionFailed, clierror.From(result.Err).Code)

	err := list.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "_responses/debug_files/does_not_exist.json")
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_EnvironmentConfig(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	t.Setenv("SENTRY_URL", srv.URL())
	t.Setenv("SENTRY_AUTH_TOKEN", testToken)
	t.Setenv("SENTRY_ORG", testOrg)
	t.Setenv("SENTRY_PROJECT", testProject)

	list := testutils.MockEndpoint(t, srv,
		testutils.New("GET", debugFilesPath, http.StatusOK).
			WithHeaderMatcher("Authorization", mockhttp.Exact("Bearer "+testToken)).
			WithHeaderMatcher("X-Trace", mockhttp.Exact("abc")).
			WithResponseFile("debug_files/list_existing.json"))
	upload := testutils.MockEndpoint(t, srv,
		testutils.New("POST", debugFilesPath, http.StatusCreated).
			WithMatcher(mockhttp.Regex(`filename="libfoo\.sym"`)).
			WithResponseFile("debug_files/upload_libfoo.json"))

	result := runCLI(t, "upload-dif", "--header", "X-Trace: abc", "--type", "breakpad", symbolsDir)
	result.AssertSuccess(t)

	list.Assert(t)
	upload.Assert(t)
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_NoUpload(t *testing.T) {
	isolate(t)
	srv := testutils.NewServer(t)

	result := runCLI(t, "upload-dif", "--url", srv.URL(), "--no-upload", symbolsDir)
	result.AssertSuccess(t)
	result.AssertLines(t,
		"> Found 2 debug information files",
		"  "+appDebugID+" (_fixtures/symbols/app.sym; x86_64 breakpad)",
		"> skipping upload",
	)
	assert.Equal(t, 0, srv.Requests().Count(), "--no-upload must not contact the server")
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_Filters(t *testing.T) {
	isolate(t)

	tests := []struct {
		name  string
		args  []string
		found string
	}{
		{"exclude glob", []string{"--exclude", "lib*.sym"}, "Found 1 debug information file\n"},
		{"exclude everything", []string{"--exclude", "**"}, "Found 0 debug information files"},
		{"type mismatch", []string{"--type", "elf"}, "Found 0 debug information files"},
		{"id filter", []string{"--id", "3249d99d-0c40-4931-8610-f4e4fb0b6936"}, "Found 1 debug information file\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"upload-dif", "--no-upload"}, tt.args...)
			result := runCLI(t, append(args, symbolsDir)...)
			result.AssertSuccess(t)
			result.AssertContains(t, tt.found)
		})
	}
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_RequireAll(t *testing.T) {
	isolate(t)

	const unknownID = "00000000-0000-0000-0000-000000000001"
	result := runCLI(t, "upload-dif", "--no-upload", "--require-all",
		"--id", "3249d99d-0c40-4931-8610-f4e4fb0b6936",
		"--id", unknownID,
		symbolsDir)

	result.AssertExitCode(t, clierror.ExitNotFound)
	result.AssertContains(t, "Missing debug information file for "+unknownID)
	assert.Contains(t, result.Err.Error(), unknownID)
}

// Cannot run in parallel - uses t.Setenv
func TestUploadDif_MissingProject(t *testing.T) {
	isolate(t)

	result := runCLI(t, "upload-dif", "--org", testOrg, symbolsDir)
	result.AssertExitCode(t, clierror.ExitUsage)
	assert.Contains(t, result.Err.Error(), "project (--project or SENTRY_PROJECT)")
}
