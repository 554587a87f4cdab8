package remote

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/target"
	testutil "github.com/imamik/opspipe/internal/testing"
	"github.com/imamik/opspipe/internal/testing/sshtest"
)

func mockConnector(m *testutil.MockExecutor) pipeline.Connector[Executor] {
	return pipeline.ConnectorFunc[Executor]{
		Endpoint: "deploy@mock:22",
		OpenFunc: func(context.Context) (Executor, error) { return m, nil },
	}
}

func testDeploy(local string) Deploy {
	return Deploy{
		LocalFile:      local,
		RemotePath:     "app.tar.gz",
		WorkDir:        "/srv/app",
		Service:        "web",
		BuildCommand:   "npm run build",
		RestartCommand: "pm2 restart {{.Service}}",
		StartCommand:   "pm2 start ecosystem.config.js",
		TailLines:      5,
	}
}

func runDeploy(t *testing.T, m *testutil.MockExecutor, d Deploy) *pipeline.Outcome {
	t.Helper()
	steps, err := d.Steps()
	require.NoError(t, err)
	outcome, _ := pipeline.NewRunner(mockConnector(m), steps, pipeline.Options{Task: "deploy"}).Run(context.Background())
	return outcome
}

func TestDeploy_TransferFailureSkipsBuildAndRestart(t *testing.T) {
	m := &testutil.MockExecutor{}
	m.On("Close").Return(nil).Once()

	outcome := runDeploy(t, m, testDeploy(filepath.Join(t.TempDir(), "missing.tar.gz")))

	require.False(t, outcome.Succeeded())
	assert.Equal(t, 0, outcome.FailedStep)
	assert.True(t, pipeline.IsKind(outcome.Err, pipeline.KindTransfer))
	m.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	m.AssertNumberOfCalls(t, "Close", 1)
}

func TestDeploy_UploadFailureSkipsBuild(t *testing.T) {
	local := testutil.WriteFile(t, "app.tar.gz", "payload")
	m := &testutil.MockExecutor{}
	m.On("Upload", mock.Anything, int64(7), "/srv/app/app.tar.gz").Return(int64(0), errors.New("disk full")).Once()
	m.On("Close").Return(nil).Once()

	outcome := runDeploy(t, m, testDeploy(local))

	assert.True(t, pipeline.IsKind(outcome.Err, pipeline.KindTransfer))
	assert.ErrorContains(t, outcome.Err, "disk full")
	m.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	m.AssertExpectations(t)
}

func TestDeploy_BuildFailureSkipsRestart(t *testing.T) {
	local := testutil.WriteFile(t, "app.tar.gz", "payload")
	m := &testutil.MockExecutor{}
	m.On("Upload", mock.Anything, int64(7), "/srv/app/app.tar.gz").Return(int64(7), nil).Once()
	m.On("Run", mock.Anything, "cd '/srv/app' && npm run build", mock.Anything).Return(2, nil, "Type error in page.tsx\n").Once()
	m.On("Close").Return(nil).Once()

	outcome := runDeploy(t, m, testDeploy(local))

	assert.Equal(t, 1, outcome.FailedStep)
	var pe *pipeline.Error
	require.ErrorAs(t, outcome.Err, &pe)
	assert.Equal(t, pipeline.KindCommand, pe.Kind)
	assert.Contains(t, pe.Output, "Type error in page.tsx")
	m.AssertNumberOfCalls(t, "Run", 1)
	m.AssertExpectations(t)
}

func TestDeploy_Success(t *testing.T) {
	local := testutil.WriteFile(t, "app.tar.gz", "payload")
	m := &testutil.MockExecutor{}
	m.On("Upload", mock.Anything, int64(7), "/srv/app/app.tar.gz").Return(int64(7), nil).Once()
	m.On("Run", mock.Anything, "cd '/srv/app' && npm run build", mock.Anything).Return(0, nil, "compiled\n").Once()
	m.On("Run", mock.Anything, "cd '/srv/app' && pm2 restart web", mock.Anything).Return(0, nil).Once()
	m.On("Close").Return(nil).Once()

	outcome := runDeploy(t, m, testDeploy(local))

	require.True(t, outcome.Succeeded(), "%v", outcome.Err)
	require.Len(t, outcome.Results, 3)
	assert.Equal(t, "compiled", outcome.Results[1].Output)
	assert.Equal(t, "restarted", outcome.Results[2].Details)
	m.AssertExpectations(t)
}

func TestRestartService_FallbackRunsOnce(t *testing.T) {
	m := &testutil.MockExecutor{}
	m.On("Run", mock.Anything, "pm2 restart web", mock.Anything).Return(1, nil, "[PM2][ERROR] Process or Namespace web not found\n").Once()
	m.On("Run", mock.Anything, "pm2 start ecosystem.config.js", mock.Anything).Return(0, nil, "started\n").Once()
	rec := &testutil.MockRecorder{}

	step := RestartService{Service: "web", RestartCommand: "pm2 restart web", StartCommand: "pm2 start ecosystem.config.js"}
	res, err := step.Run(context.Background(), m, rec)

	require.NoError(t, err)
	assert.Equal(t, "started", res.Details)
	m.AssertNumberOfCalls(t, "Run", 2)
	require.Len(t, rec.Notes, 1)
	assert.Contains(t, rec.Notes[0], "falling back to start command")
}

func TestRestartService_BothFail(t *testing.T) {
	local := testutil.WriteFile(t, "app.tar.gz", "payload")
	m := &testutil.MockExecutor{}
	m.On("Upload", mock.Anything, int64(7), "/srv/app/app.tar.gz").Return(int64(7), nil).Once()
	m.On("Run", mock.Anything, "cd '/srv/app' && npm run build", mock.Anything).Return(0, nil).Once()
	m.On("Run", mock.Anything, "cd '/srv/app' && pm2 restart web", mock.Anything).Return(1, nil).Once()
	m.On("Run", mock.Anything, "cd '/srv/app' && pm2 start ecosystem.config.js", mock.Anything).Return(1, nil, "script not found\n").Once()
	m.On("Close").Return(nil).Once()

	outcome := runDeploy(t, m, testDeploy(local))

	assert.Equal(t, pipeline.StatusPartialFailure, outcome.Status)
	assert.Equal(t, 2, outcome.FailedStep)
	assert.True(t, pipeline.IsKind(outcome.Err, pipeline.KindCommand))
	assert.ErrorContains(t, outcome.Err, "restart: exited with status 1")
	assert.ErrorContains(t, outcome.Err, "start: exited with status 1")
	m.AssertExpectations(t)
}

func TestRestartService_NoStartCommand(t *testing.T) {
	m := &testutil.MockExecutor{}
	m.On("Run", mock.Anything, "systemctl restart web", mock.Anything).Return(3, nil).Once()

	_, err := RestartService{Service: "web", RestartCommand: "systemctl restart web"}.Run(context.Background(), m, &testutil.MockRecorder{})

	assert.True(t, pipeline.IsKind(err, pipeline.KindCommand))
	m.AssertNumberOfCalls(t, "Run", 1)
}

func TestRunCommand_TransportError(t *testing.T) {
	m := &testutil.MockExecutor{}
	m.On("Run", mock.Anything, "make", mock.Anything).Return(-1, errors.New("connection reset")).Once()

	_, err := RunCommand{Label: "build", Command: "make"}.Run(context.Background(), m, &testutil.MockRecorder{})

	var pe *pipeline.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pipeline.KindCommand, pe.Kind)
	assert.Equal(t, "build", pe.Op)
	assert.ErrorContains(t, err, "connection reset")
}

func TestRunCommand_TailsOutput(t *testing.T) {
	var out bytes.Buffer
	for i := range 50 {
		out.WriteString("line ")
		out.WriteString(string(rune('a' + i%26)))
		out.WriteString("\n")
	}
	m := &testutil.MockExecutor{}
	m.On("Run", mock.Anything, "make", mock.Anything).Return(0, nil, out.String()).Once()

	res, err := RunCommand{Command: "make", TailLines: 3}.Run(context.Background(), m, &testutil.MockRecorder{})

	require.NoError(t, err)
	assert.Equal(t, "line v\nline w\nline x", res.Output)
}

func TestTransferFile_RejectsDirectory(t *testing.T) {
	m := &testutil.MockExecutor{}
	_, err := TransferFile{LocalPath: t.TempDir(), RemotePath: "/tmp/x"}.Run(context.Background(), m, &testutil.MockRecorder{})

	assert.True(t, pipeline.IsKind(err, pipeline.KindTransfer))
	assert.ErrorContains(t, err, "not a regular file")
}

func TestTransferFile_ShortRemoteWrite(t *testing.T) {
	local := testutil.WriteFile(t, "app.tar.gz", "payload")
	m := &testutil.MockExecutor{}
	m.On("Upload", mock.Anything, int64(7), "/tmp/app.tar.gz").Return(int64(3), nil).Once()

	_, err := TransferFile{LocalPath: local, RemotePath: "/tmp/app.tar.gz"}.Run(context.Background(), m, &testutil.MockRecorder{})

	assert.True(t, pipeline.IsKind(err, pipeline.KindTransfer))
	assert.ErrorContains(t, err, "remote file has 3 bytes, expected 7")
}

func TestRender(t *testing.T) {
	t.Parallel()
	vars := CommandVars{WorkDir: "/srv/app", Service: "web"}

	got, err := Render("restart", "pm2 restart {{.Service}}", vars)
	require.NoError(t, err)
	assert.Equal(t, "pm2 restart web", got)

	got, err = Render("build", "  rm -rf .next && npm run build ", vars)
	require.NoError(t, err)
	assert.Equal(t, "rm -rf .next && npm run build", got)

	_, err = Render("build", "make {{.Target}}", vars)
	assert.ErrorContains(t, err, "failed to render build command")

	_, err = Render("build", "make {{", vars)
	assert.ErrorContains(t, err, "invalid build command template")
}

func TestDeploy_StepsValidation(t *testing.T) {
	t.Parallel()
	d := testDeploy("app.tar.gz")

	steps, err := d.Steps()
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, "transfer app.tar.gz", steps[0].Name())
	assert.Equal(t, "build", steps[1].Name())
	assert.Equal(t, "restart web", steps[2].Name())

	empty := d
	empty.LocalFile = ""
	_, err = empty.Steps()
	assert.Error(t, err)

	noBuild := d
	noBuild.BuildCommand = " "
	_, err = noBuild.Steps()
	assert.ErrorContains(t, err, "build command cannot be empty")
}

func TestDeploy_ResolvedRemotePath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/srv/app/dist/app.js", Deploy{WorkDir: "/srv/app", RemotePath: "dist/app.js"}.ResolvedRemotePath())
	assert.Equal(t, "/opt/app.js", Deploy{WorkDir: "/srv/app", RemotePath: "/opt/app.js"}.ResolvedRemotePath())
	assert.Equal(t, "app.js", Deploy{RemotePath: "app.js"}.ResolvedRemotePath())
}

func TestDeploy_OverSSH(t *testing.T) {
	srv := sshtest.Start(t)
	workDir := t.TempDir()
	local := testutil.WriteFile(t, "page.tsx", "export default function Page() {}\n")

	d := Deploy{
		LocalFile:      local,
		RemotePath:     "page.tsx",
		WorkDir:        workDir,
		Service:        "web",
		BuildCommand:   "wc -l page.tsx > build.log && echo build ok",
		RestartCommand: "echo 'no process {{.Service}}' >&2; exit 1",
		StartCommand:   "echo started {{.Service}} > started.txt",
		TailLines:      10,
	}
	steps, err := d.Steps()
	require.NoError(t, err)

	conn := Connector{Target: target.Host{
		Address:    srv.Addr,
		User:       srv.User,
		PrivateKey: srv.ClientKey.PrivateKey,
		WorkDir:    workDir,
		HostKey:    target.HostKey{Policy: target.HostKeyFingerprint, Fingerprint: srv.HostKey.Fingerprint()},
	}}

	var trace bytes.Buffer
	outcome, err := pipeline.NewRunner[Executor](conn, steps, pipeline.Options{
		Task:     "deploy",
		Observer: pipeline.NewWriterObserver(&trace, false),
	}).Run(testutil.TestContext(t))
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())

	uploaded, err := os.ReadFile(filepath.Join(workDir, "page.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "export default function Page() {}\n", string(uploaded))

	started, err := os.ReadFile(filepath.Join(workDir, "started.txt"))
	require.NoError(t, err)
	assert.Equal(t, "started web\n", string(started))

	assert.Contains(t, trace.String(), "build ok")
	assert.Contains(t, trace.String(), "falling back to start command")
	require.Eventually(t, func() bool { return srv.LiveConnections() == 0 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, srv.AcceptedConnections())
}

func TestConnector_OpenFailureReturnsNilInterface(t *testing.T) {
	conn := Connector{Target: target.Host{Address: "127.0.0.1:1", User: "x"}}
	h, err := conn.Open(context.Background())
	require.Error(t, err)
	assert.Nil(t, h)
	assert.Equal(t, "x@127.0.0.1:1", conn.Describe())
}
