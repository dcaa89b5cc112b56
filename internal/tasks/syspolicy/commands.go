package syspolicy

import (
	"fmt"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/runner"
)

// chpasswdCommand sets a password read from stdin, so the password is
// never part of a command line.
const chpasswdCommand = "chpasswd"

// systemSequence is the machine-wide policy applied by the setup plan.
var systemSequence = runner.Sequence{
	{
		Name: "accounts",
		Commands: []string{
			"addgroup xtuser",
			"addgroup xtadmin",
			"useradd xtremote -d /usr/local/xtremote",
			chpasswdCommand,
			"adduser xtadmin --disabled-login",
			"usermod -a -G xtadmin,xtuser,www-data,postgres,lpadmin,ssl-cert xtremote",
			"usermod -a -G ssl-cert,xtuser,www-data postgres",
			"chsh -s /bin/bash xtremote",
		},
	},
	{
		Name: "ownership",
		Commands: []string{
			"chown -R :xtuser /etc/xtuple",
			"chown -R :xtuser /var/log/xtuple",
			"chown -R :xtuser /var/lib/xtuple",
			"chown -R :xtuser /usr/sbin/xtuple",
			"chown -R :xtuser /usr/local/xtuple",
			"chown -R postgres:xtuser /var/run/postgresql",
		},
	},
	{
		Name: "permissions",
		Commands: []string{
			"chmod -R g=x,o-wr /etc/xtuple/",
			"chmod -R g=rx,u=rwx,o-wr /var/lib/xtuple",
			"chmod -R g=rx,u=rwx,o=rx /usr/sbin/xtuple",
			"chmod -R g=rx,u=rwx,o=rx /usr/local/xtuple",
			"chmod -R g+wrx /var/run/postgresql",
		},
	},
}

// userSequence is the per-installation policy applied by every other plan.
var userSequence = runner.Sequence{
	{
		Name: "accounts",
		Commands: []string{
			"useradd {{.xt.name}} -d /usr/local/{{.xt.name}}",
			chpasswdCommand,
			"usermod -a -G postgres,xtuser {{.xt.name}}",
			"chage -d 0 {{.xt.name}}",
		},
	},
	{
		Name: "ownership",
		Commands: []string{
			"chown -R :xtuser {{.pg.logdir}}",
			"chown -R {{.xt.name}}:xtuser /usr/local/{{.xt.name}}",
			"chown -R {{.xt.name}}:xtuser {{.xt.logdir}}",
			"chown -R {{.xt.name}}:xtuser {{.xt.configdir}}",
			"chown -R {{.xt.name}}:xtuser {{.xt.statedir}}",
			"chown -R {{.xt.name}}:xtuser {{.xt.rundir}}",
			"chown -R {{.xt.name}}:ssl-cert {{.xt.ssldir}}",
			"chown -R {{.xt.name}}:{{.xt.name}} {{.xt.userhome}}",
			"chown -R {{.xt.name}}:{{.xt.name}} {{.xt.userconfig}}",
		},
	},
	{
		Name: "permissions",
		Commands: []string{
			"chmod -R u=rwx /usr/local/{{.xt.name}}",
			"chmod -R u=rwx,g=wx {{.xt.logdir}}",
			"chmod -R u=rwx,g=wx {{.pg.logdir}}",
			"chmod -R u=rwx,g-rwx {{.xt.statedir}}",
			"chmod -R g=rx,u=wrx,o-rwx {{.xt.ssldir}}",
			"chmod -R g=rwx,u=wrx,o-rw {{.xt.configdir}}",
		},
	},
}

// credentialLeftovers are removed after every plan.
var credentialLeftovers = runner.Sequence{
	{
		Name: "cleanup",
		Commands: []string{
			"rm -f ~/.pgpass",
			"rm -f ~/.bash_history",
			"rm -f /root/.bash_history",
		},
	},
}

// render expands every command of seq against opts. Group order and
// command order are preserved.
func render(seq runner.Sequence, opts *config.Options) (runner.Sequence, error) {
	out := make(runner.Sequence, len(seq))
	for i, g := range seq {
		cmds := make([]string, len(g.Commands))
		for j, c := range g.Commands {
			r, err := config.Render(c, opts)
			if err != nil {
				return nil, fmt.Errorf("failed to render %s command %d: %w", g.Name, j+1, err)
			}
			cmds[j] = r
		}
		out[i] = runner.Group{Name: g.Name, Commands: cmds}
	}
	return out, nil
}

// withPassword turns seq into steps and feeds "user:password" to the
// chpasswd step.
func withPassword(seq runner.Sequence, user, password string) []runner.Step {
	steps := seq.Steps()
	for i := range steps {
		if steps[i].Command == chpasswdCommand {
			steps[i].Stdin = user + ":" + password + "\n"
		}
	}
	return steps
}
