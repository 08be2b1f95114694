package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/marksheet/cmd/marksheet/cmd"
	"github.com/cucumber/godog"
)

// iRunCommand runs a marksheet command line in-process. The leading
// program name is optional and {name} placeholders are substituted.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substitute(command)
	testCtx.LastCommand = command

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "marksheet" {
		args = args[1:]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd.ResetFlags()
	cmd.SetLogOutput(io.Discard)
	root := cmd.GetRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	defer func() {
		root.SetOut(nil)
		root.SetErr(nil)
		root.SetArgs(nil)
	}()

	start := time.Now()
	err := root.ExecuteContext(ctx)
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastExitCode = 0
	if err != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies stdout or stderr contains text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	expectedText = testCtx.substitute(expectedText)
	if !strings.Contains(testCtx.LastOutput+testCtx.LastStderr, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theErrorShouldMention verifies the error message contains text,
// ignoring case.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}
	if !strings.Contains(strings.ToLower(testCtx.LastError.Error()), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %v", errorText, testCtx.LastError)
	}
	return nil
}

// lastJSON decodes the command output, or the last HTTP response body when
// fromHTTP is set.
func (testCtx *TestContext) lastJSON(fromHTTP bool) (any, error) {
	raw := testCtx.LastOutput
	if fromHTTP {
		raw = testCtx.LastHTTPResponse
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("no JSON found: output is empty")
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, raw)
	}
	return v, nil
}

// lookup walks a dotted path through objects and arrays. Numeric parts
// index arrays.
func lookup(v any, path string) (any, error) {
	current := v
	parts := strings.Split(path, ".")
	for i, part := range parts {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field '%s' not found in JSON", strings.Join(parts[:i+1], "."))
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("invalid index '%s' at '%s'", part, strings.Join(parts[:i], "."))
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("cannot navigate deeper into non-object field '%s'", strings.Join(parts[:i], "."))
		}
	}
	return current, nil
}

// render formats a decoded JSON value for comparison with step text.
func render(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func (testCtx *TestContext) checkJSONField(fromHTTP bool, field, expected string) error {
	v, err := testCtx.lastJSON(fromHTTP)
	if err != nil {
		return err
	}
	got, err := lookup(v, field)
	if err != nil {
		return err
	}
	if render(got) != expected {
		return fmt.Errorf("field '%s' is %q, expected %q", field, render(got), expected)
	}
	return nil
}

func (testCtx *TestContext) checkJSONItems(fromHTTP bool, field string, n int) error {
	v, err := testCtx.lastJSON(fromHTTP)
	if err != nil {
		return err
	}
	got, err := lookup(v, field)
	if err != nil {
		return err
	}
	items, ok := got.([]any)
	if !ok {
		return fmt.Errorf("field '%s' is not an array", field)
	}
	if len(items) != n {
		return fmt.Errorf("field '%s' has %d items, expected %d", field, len(items), n)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.lastJSON(false)
	return err
}

func (testCtx *TestContext) theJSONShouldContain(field string) error {
	v, err := testCtx.lastJSON(false)
	if err != nil {
		return err
	}
	_, err = lookup(v, field)
	return err
}

func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	return testCtx.checkJSONField(false, field, expected)
}

func (testCtx *TestContext) theJSONFieldShouldHaveItems(field string, n int) error {
	return testCtx.checkJSONItems(false, field, n)
}

// RegisterCommonSteps registers the command and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should have (\d+) items?$`, testCtx.theJSONFieldShouldHaveItems)
}
