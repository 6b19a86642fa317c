// Test Type: Unit Test
// Description: Pipeline tests for RunPackTests with a scripted command runner

package core_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/packtest/pkg/command"
	"github.com/arthur-debert/packtest/pkg/config"
	"github.com/arthur-debert/packtest/pkg/core"
	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(envsDir, platformRepo string) *config.Config {
	return &config.Config{
		Platform: config.PlatformConfig{Repo: platformRepo, Prefix: "st2"},
		Envs:     config.EnvsConfig{Dir: envsDir},
		Pip:      config.PipConfig{Options: "-q"},
		Python:   config.PythonConfig{Binary: "python"},
		Runner:   config.RunnerConfig{Binary: "nosetests", Args: "-s -v"},
	}
}

func baseEnv() []string {
	return []string{"PATH=/usr/bin", "HOME=/home/u"}
}

// callsFor returns the specs whose executable base name matches.
func callsFor(runner *testutil.ScriptedRunner, name string) []command.Spec {
	var out []command.Spec
	for _, call := range runner.Calls {
		if filepath.Base(call.Name) == name {
			out = append(out, call)
		}
	}
	return out
}

func envValue(env []string, key string) string {
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			return strings.TrimPrefix(kv, key+"=")
		}
	}
	return ""
}

func TestRunPackTestsFullPipeline(t *testing.T) {
	repo := testutil.CreatePlatformRepo(t, "st2", "common", "reactor")
	packPath := testutil.CreatePack(t, testutil.PackFixture{
		Name:             "netmon",
		WithTests:        true,
		WithSensors:      true,
		WithActions:      true,
		WithEtc:          true,
		Requirements:     "requests\n",
		TestRequirements: "responses\n",
	})
	envsDir := t.TempDir()
	runner := testutil.NewScriptedRunner()

	result, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath: packPath,
		Config:   testConfig(envsDir, repo),
		Runner:   runner,
		BaseEnv:  baseEnv(),
	})
	require.NoError(t, err)

	assert.True(t, result.TestsRun)
	assert.True(t, result.Isolated)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, filepath.Join(envsDir, "netmon"), result.EnvDir)

	// Creation: virtualenv module, then pip upgrade inside the env.
	pythonCalls := callsFor(runner, "python")
	require.Len(t, pythonCalls, 2)
	assert.Equal(t, []string{"-m", "virtualenv", result.EnvDir}, pythonCalls[0].Args)
	assert.Equal(t, []string{"-m", "pip", "install", "--upgrade", "pip"}, pythonCalls[1].Args)

	// Install layers in fixed order: platform runtime, platform test,
	// pinned tooling, pack runtime, pack test.
	pipCalls := callsFor(runner, "pip")
	require.Len(t, pipCalls, 5)
	assert.Contains(t, pipCalls[0].Args, filepath.Join(repo, "requirements.txt"))
	assert.Contains(t, pipCalls[1].Args, filepath.Join(repo, "test-requirements.txt"))
	assert.Contains(t, pipCalls[2].Args, "nose==1.3.7")
	assert.Contains(t, pipCalls[3].Args, filepath.Join(packPath, "requirements.txt"))
	assert.Contains(t, pipCalls[4].Args, filepath.Join(packPath, "requirements-tests.txt"))

	// pip resolved inside the env, options and cache applied
	assert.Equal(t, filepath.Join(result.EnvDir, "bin", "pip"), pipCalls[0].Name)
	assert.Contains(t, pipCalls[0].Args, "-q")
	assert.Contains(t, pipCalls[0].Args, "--cache-dir")

	// Runner invocation last, with the composed PYTHONPATH.
	runnerCalls := callsFor(runner, "nosetests")
	require.Len(t, runnerCalls, 1)
	run := runnerCalls[0]
	assert.Equal(t, filepath.Join(result.EnvDir, "bin", "nosetests"), run.Name)
	assert.Equal(t, []string{"-s", "-v", filepath.Join(packPath, "tests")}, run.Args)

	pythonPath := envValue(run.Env, "PYTHONPATH")
	wantSuffix := strings.Join([]string{
		filepath.Join(packPath, "sensors"),
		filepath.Join(packPath, "actions"),
		filepath.Join(packPath, "etc"),
	}, string(os.PathListSeparator))
	assert.True(t, strings.HasSuffix(pythonPath, wantSuffix), "PYTHONPATH=%s", pythonPath)
	assert.Contains(t, pythonPath, filepath.Join(repo, "st2common"))
	assert.Contains(t, pythonPath, filepath.Join(repo, "st2reactor"))

	// The activated env leads the child's PATH.
	assert.True(t, strings.HasPrefix(envValue(run.Env, "PATH"), filepath.Join(result.EnvDir, "bin")))

	// The runner was the last external command.
	names := runner.CallNames()
	assert.Equal(t, "nosetests", names[len(names)-1])
}

func TestRunPackTestsNoTestsShortCircuits(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{WithSensors: true})
	runner := testutil.NewScriptedRunner()

	result, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath: packPath,
		Config:   testConfig(t.TempDir(), ""),
		Runner:   runner,
		BaseEnv:  baseEnv(),
	})
	require.NoError(t, err)

	assert.False(t, result.TestsRun)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, runner.Calls, "no environment or install work before the short-circuit")
}

func TestRunPackTestsPropagatesRunnerStatus(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{WithTests: true})
	runner := testutil.NewScriptedRunner()
	runner.Results["nosetests"] = command.Result{ExitCode: 1}

	result, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath: packPath,
		Config:   testConfig(t.TempDir(), ""),
		Runner:   runner,
		BaseEnv:  baseEnv(),
	})
	require.NoError(t, err, "failing tests are a result, not a pipeline error")
	assert.Equal(t, 1, result.ExitCode)
}

func TestRunPackTestsTestsOnlyRequiresEnv(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{Name: "netmon", WithTests: true})
	runner := testutil.NewScriptedRunner()

	_, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath:  packPath,
		TestsOnly: true,
		Config:    testConfig(t.TempDir(), ""),
		Runner:    runner,
		BaseEnv:   baseEnv(),
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEnvMissing))
	assert.Equal(t, errors.ExitUsage, errors.ExitCode(err))
	assert.Empty(t, runner.Calls, "no installation may happen before the configuration error")
}

func TestRunPackTestsTestsOnlySkipsInstallation(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{
		Name:         "netmon",
		WithTests:    true,
		Requirements: "requests\n",
	})
	envsDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(envsDir, "netmon", "bin"), 0755))

	runner := testutil.NewScriptedRunner()

	result, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath:  packPath,
		TestsOnly: true,
		Config:    testConfig(envsDir, ""),
		Runner:    runner,
		BaseEnv:   baseEnv(),
	})
	require.NoError(t, err)

	assert.True(t, result.Isolated)
	assert.Equal(t, []string{"nosetests"}, runner.CallNames(),
		"tests-only mode must run nothing but the test runner")
	assert.Equal(t, filepath.Join(envsDir, "netmon", "bin", "nosetests"), runner.Calls[0].Name)
}

func TestRunPackTestsSkipCreationWithoutEnv(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{WithTests: true})
	runner := testutil.NewScriptedRunner()

	result, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath:        packPath,
		SkipEnvCreation: true,
		Config:          testConfig(t.TempDir(), ""),
		Runner:          runner,
		BaseEnv:         baseEnv(),
	})
	require.NoError(t, err)

	// No env to reuse: continue un-isolated, but still install the layers.
	assert.False(t, result.Isolated)

	names := runner.CallNames()
	assert.NotContains(t, names, "python", "no environment creation with -x")
	assert.Contains(t, names, "pip", "installation still happens without -j")

	// Tools resolve via PATH, not a virtualenv bin dir.
	runnerCalls := callsFor(runner, "nosetests")
	require.Len(t, runnerCalls, 1)
	assert.Equal(t, "nosetests", runnerCalls[0].Name)
}

func TestRunPackTestsIdempotentReuse(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{Name: "netmon", WithTests: true})
	envsDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(envsDir, "netmon", "bin"), 0755))

	for i := 0; i < 2; i++ {
		runner := testutil.NewScriptedRunner()
		result, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
			PackPath:        packPath,
			SkipEnvCreation: true,
			TestsOnly:       true,
			Config:          testConfig(envsDir, ""),
			Runner:          runner,
			BaseEnv:         baseEnv(),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, result.ExitCode)
		assert.Equal(t, []string{"nosetests"}, runner.CallNames(),
			"run %d must perform no installation", i+1)
	}
}

func TestRunPackTestsInstallFailureAborts(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{
		WithTests:    true,
		Requirements: "requests\n",
	})
	runner := testutil.NewScriptedRunner()
	runner.Results["pip"] = command.Result{ExitCode: 4}

	_, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath: packPath,
		Config:   testConfig(t.TempDir(), ""),
		Runner:   runner,
		BaseEnv:  baseEnv(),
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInstall))
	assert.Equal(t, 4, errors.ExitCode(err))
	assert.NotContains(t, runner.CallNames(), "nosetests",
		"the test runner must not run after a failed install")
}

func TestRunPackTestsMergesExistingPythonPath(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{WithTests: true})
	runner := testutil.NewScriptedRunner()

	env := append(baseEnv(), "PYTHONPATH=/pre/existing")
	_, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath: packPath,
		Config:   testConfig(t.TempDir(), ""),
		Runner:   runner,
		BaseEnv:  env,
	})
	require.NoError(t, err)

	runnerCalls := callsFor(runner, "nosetests")
	require.Len(t, runnerCalls, 1)
	pythonPath := envValue(runnerCalls[0].Env, "PYTHONPATH")
	assert.True(t, strings.HasPrefix(pythonPath, "/pre/existing"+string(os.PathListSeparator)),
		"existing PYTHONPATH must come first: %s", pythonPath)
}

func TestRunPackTestsHonorsPackOverride(t *testing.T) {
	packPath := testutil.CreatePack(t, testutil.PackFixture{
		Override: `tests_dir = "checks"
runner_args = "--nocapture"
`,
	})
	require.NoError(t, os.MkdirAll(filepath.Join(packPath, "checks"), 0755))

	runner := testutil.NewScriptedRunner()
	result, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath: packPath,
		Config:   testConfig(t.TempDir(), ""),
		Runner:   runner,
		BaseEnv:  baseEnv(),
	})
	require.NoError(t, err)
	assert.True(t, result.TestsRun)

	runnerCalls := callsFor(runner, "nosetests")
	require.Len(t, runnerCalls, 1)
	assert.Equal(t,
		[]string{"--nocapture", filepath.Join(packPath, "checks")},
		runnerCalls[0].Args)
}

func TestRunPackTestsInvalidPack(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := core.RunPackTests(context.Background(), core.RunPackTestsOptions{
		PackPath: file,
		Config:   testConfig(t.TempDir(), ""),
		Runner:   testutil.NewScriptedRunner(),
		BaseEnv:  baseEnv(),
	})
	require.Error(t, err)
	assert.Equal(t, errors.ExitInvalidPack, errors.ExitCode(err))
}
