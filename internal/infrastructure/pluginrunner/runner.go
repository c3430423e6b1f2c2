// Package pluginrunner implements the external plugin event dispatch:
// resolve a plugin directory from its name, spawn its declared
// entrypoint as a child process with that directory as its working
// directory, feed it one JSON event over stdin, and parse a line-delimited
// stream of PluginDirective objects from its stdout. There are no
// concurrent reads/writes and no timeouts in the core; callers impose
// cancellation through ctx.
package pluginrunner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/odin-run/odin/internal/application/apperrors"
	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/domain/schema"
	"github.com/odin-run/odin/internal/infrastructure/pluginmanifest"
)

// stderrSnippetLimit bounds how much of a failed plugin's stderr is folded
// into the returned error.
const stderrSnippetLimit = 2048

// Runner dispatches events to external plugin processes resolved beneath a
// single plugins root directory.
type Runner struct {
	PluginsRoot string
	CoreVersion string
	Schemas     *schema.Compiler
}

// New returns a Runner rooted at pluginsRoot. coreVersion is checked against
// each resolved plugin's compatibility.core_version constraint; pass "" to
// skip the check (e.g. in tests).
func New(pluginsRoot, coreVersion string) *Runner {
	return &Runner{PluginsRoot: pluginsRoot, CoreVersion: coreVersion, Schemas: schema.NewCompiler()}
}

// resolvedPlugin is a plugin directory that has been confirmed to carry a
// manifest naming the requested plugin.
type resolvedPlugin struct {
	dir      string
	manifest protocol.PluginManifest
}

// resolve tries plugins_root/<name>, plugins_root/<dotted-to-dashed>, and
// plugins_root/<last-dot-segment> in that order; the first directory
// containing odin.plugin.yaml wins.
func (r *Runner) resolve(pluginName string) (resolvedPlugin, error) {
	candidates := candidateDirNames(pluginName)
	for _, candidate := range candidates {
		dir := filepath.Join(r.PluginsRoot, candidate)
		manifestPath := filepath.Join(dir, pluginmanifest.ManifestFileName)
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}

		manifest, err := pluginmanifest.Load(manifestPath, r.Schemas)
		if err != nil {
			return resolvedPlugin{}, err
		}
		if manifest.Plugin.Name != pluginName {
			return resolvedPlugin{}, apperrors.Pluginf("plugin name mismatch: manifest at %s declares %q, expected %q", manifestPath, manifest.Plugin.Name, pluginName)
		}
		if r.CoreVersion != "" {
			if err := pluginmanifest.CheckCompatibility(manifest, r.CoreVersion); err != nil {
				return resolvedPlugin{}, err
			}
		}
		return resolvedPlugin{dir: dir, manifest: manifest}, nil
	}
	return resolvedPlugin{}, apperrors.Pluginf("plugin manifest not found for %q under %s", pluginName, r.PluginsRoot)
}

func candidateDirNames(pluginName string) []string {
	names := []string{pluginName}

	dashed := strings.ReplaceAll(pluginName, ".", "-")
	if dashed != pluginName {
		names = append(names, dashed)
	}

	if idx := strings.LastIndex(pluginName, "."); idx >= 0 && idx+1 < len(pluginName) {
		names = append(names, pluginName[idx+1:])
	}

	return names
}

// entrypointPath resolves an EntrypointSpec.Command relative to dir: an
// absolute path is kept as-is; a path containing "/" or starting with "./"
// is joined onto dir; anything else is left for exec.LookPath (a bare PATH
// lookup).
func entrypointPath(dir, command string) (string, error) {
	if filepath.IsAbs(command) {
		return command, nil
	}
	if strings.Contains(command, "/") || strings.HasPrefix(command, "./") {
		return filepath.Join(dir, command), nil
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", apperrors.Pluginf("plugin entrypoint %q not found on PATH: %v", command, err)
	}
	return resolved, nil
}

// DispatchEvent resolves plugin, spawns its entrypoint with dir as the
// working directory, writes event as a single JSON line to stdin, and
// parses the directive stream from stdout. A non-zero exit or malformed
// directive line is a plugin-failure error; any directives already parsed
// are discarded.
func (r *Runner) DispatchEvent(ctx context.Context, plugin string, event protocol.EventEnvelope) ([]protocol.PluginDirective, error) {
	resolved, err := r.resolve(plugin)
	if err != nil {
		return nil, err
	}

	entrypoint, err := entrypointPath(resolved.dir, resolved.manifest.Plugin.Entrypoint.Command)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, apperrors.Plugin("failed to marshal plugin event envelope", err)
	}

	cmd := exec.CommandContext(ctx, entrypoint, resolved.manifest.Plugin.Entrypoint.Args...)
	cmd.Dir = resolved.dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, apperrors.Plugin("failed to open plugin stdin", err)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, apperrors.Pluginf("failed to start plugin %s: %v", plugin, err)
	}

	if _, err := stdin.Write(append(payload, '\n')); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return nil, apperrors.Plugin("failed to write event to plugin stdin", err)
	}
	if err := stdin.Close(); err != nil {
		_ = cmd.Wait()
		return nil, apperrors.Plugin("failed to close plugin stdin", err)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		return nil, apperrors.Pluginf("plugin %s failed: %v (stderr: %s)", plugin, waitErr, snippet(stderr.Bytes()))
	}

	return parseDirectives(stdout.Bytes())
}

func parseDirectives(output []byte) ([]protocol.PluginDirective, error) {
	var directives []protocol.PluginDirective

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var directive protocol.PluginDirective
		if err := json.Unmarshal([]byte(line), &directive); err != nil {
			return nil, apperrors.Pluginf("malformed plugin directive line: %v", err)
		}
		directives = append(directives, directive)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Plugin("failed to read plugin stdout", err)
	}

	if len(directives) == 0 {
		return []protocol.PluginDirective{{Action: protocol.DirectiveNoop}}, nil
	}
	return directives, nil
}

func snippet(stderr []byte) string {
	if len(stderr) > stderrSnippetLimit {
		return string(stderr[:stderrSnippetLimit]) + "...(truncated)"
	}
	return string(stderr)
}
