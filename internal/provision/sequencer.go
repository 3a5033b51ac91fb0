package provision

import (
	"context"
	"errors"

	"setup-host/internal/config"
	"setup-host/internal/execenv"
	"setup-host/internal/logger"
)

// Commander runs one external command under env. *runner.Runner implements it.
type Commander interface {
	Run(ctx context.Context, env execenv.Env, args ...string) error
}

// Sequencer runs the full provisioning sequence. Steps run strictly in order
// and the first error ends the run.
type Sequencer struct {
	Runner Commander
	Env    execenv.Env
	User   string // login added to the docker group
	Self   Self

	// LookPath finds an executable on the clean PATH; Env.LookPath when nil.
	LookPath func(name string) (string, error)
}

func (s *Sequencer) run(ctx context.Context, args ...string) error {
	return s.Runner.Run(ctx, s.Env, args...)
}

// has reports whether name resolves on the clean PATH.
func (s *Sequencer) has(name string) bool {
	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = s.Env.LookPath
	}
	_, err := lookPath(name)
	return err == nil
}

// Run executes every phase against cfg.
func (s *Sequencer) Run(ctx context.Context, cfg *config.Config) error {
	if s.Runner == nil {
		return errors.New("provision: sequencer has no runner")
	}

	phases := []struct {
		name string
		fn   func(context.Context, *config.Config) error
	}{
		{"dotfiles", s.dotfiles},
		{"system packages", s.systemPackages},
		{"snap", s.snap},
		{"mise", s.mise},
		{"uv", s.uv},
		{"docker images", s.dockerImages},
		{"setup commands", s.setupCommands},
	}

	for _, phase := range phases {
		logger.Debug("[DEBUG] Phase: %s\n", phase.name)
		if err := phase.fn(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) dotfiles(ctx context.Context, _ *config.Config) error {
	return s.run(ctx, s.Self.Invocation(TaskPrepareDotfiles, false)...)
}

// systemPackages adds the Docker repository when Docker is missing, then
// refreshes, upgrades, installs and cleans APT packages.
func (s *Sequencer) systemPackages(ctx context.Context, cfg *config.Config) error {
	needDocker := !s.has("docker")
	logger.Debug("[DEBUG] Docker present: %t\n", !needDocker)

	if needDocker {
		if err := s.run(ctx, s.Self.Invocation(TaskPrepareDocker, true)...); err != nil {
			return err
		}
	}

	if err := s.run(ctx, "sudo", "apt-get", "update"); err != nil {
		return err
	}
	if err := s.run(ctx, "sudo", "apt-get", "-y", "dist-upgrade"); err != nil {
		return err
	}

	operands := append([]string{}, cfg.Apt...)
	if needDocker {
		operands = append(operands, cfg.DockerApt...)
	}
	if len(operands) > 0 {
		args := append([]string{"sudo", "apt-get", "-y", "install", "--"}, operands...)
		if err := s.run(ctx, args...); err != nil {
			return err
		}
	}

	// Group membership takes effect at the next login.
	if needDocker {
		if err := s.run(ctx, "sudo", "usermod", "-aG", "docker", s.User); err != nil {
			return err
		}
	}

	if err := s.run(ctx, "sudo", "apt-get", "-y", "autopurge"); err != nil {
		return err
	}
	return s.run(ctx, "sudo", "apt-get", "-y", "autoclean")
}

func (s *Sequencer) snap(ctx context.Context, cfg *config.Config) error {
	if err := s.run(ctx, "sudo", "snap", "refresh"); err != nil {
		return err
	}

	if len(cfg.Snap) > 0 {
		args := append([]string{"sudo", "snap", "install", "--"}, cfg.Snap...)
		if err := s.run(ctx, args...); err != nil {
			return err
		}
	}

	// snap accepts --classic once per invocation, so classic snaps go one by one.
	for _, operand := range cfg.SnapClassic {
		if err := s.run(ctx, "sudo", "snap", "install", "--classic", "--", operand); err != nil {
			return err
		}
	}
	return nil
}

// mise installs mise when missing, else updates it in place, then pins the
// configured tools globally.
func (s *Sequencer) mise(ctx context.Context, cfg *config.Config) error {
	needMise := !s.has("mise")
	logger.Debug("[DEBUG] mise present: %t\n", !needMise)

	if needMise {
		if err := s.run(ctx, s.Self.Invocation(TaskInstallMise, false)...); err != nil {
			return err
		}
	} else {
		if err := s.run(ctx, "mise", "self-update", "-y"); err != nil {
			return err
		}
		if err := s.run(ctx, "mise", "upgrade", "--bump"); err != nil {
			return err
		}
	}

	for _, tools := range [][]string{cfg.MiseCore, cfg.Mise} {
		if len(tools) == 0 {
			continue
		}
		args := append([]string{"mise", "use", "-g", "--"}, tools...)
		if err := s.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) uv(ctx context.Context, cfg *config.Config) error {
	if err := s.run(ctx, "uv", "python", "upgrade"); err != nil {
		return err
	}

	if len(cfg.UvPython) > 0 {
		args := append([]string{"uv", "python", "install", "--"}, cfg.UvPython...)
		if err := s.run(ctx, args...); err != nil {
			return err
		}
	}

	if err := s.run(ctx, "uv", "tool", "upgrade", "--all"); err != nil {
		return err
	}

	for _, tool := range cfg.UvTool {
		args := append([]string{"uv", "tool", "install"}, tool.Options...)
		args = append(args, "--", tool.Operand)
		if err := s.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) dockerImages(ctx context.Context, cfg *config.Config) error {
	for _, image := range cfg.DockerImage {
		if err := s.run(ctx, "sudo", "docker", "pull", "--", image); err != nil {
			return err
		}
	}
	return nil
}

// setupCommands runs each configured command verbatim through /bin/sh.
func (s *Sequencer) setupCommands(ctx context.Context, cfg *config.Config) error {
	for _, command := range cfg.Setup {
		if err := s.run(ctx, "/bin/sh", "-c", command); err != nil {
			return err
		}
	}
	return nil
}
