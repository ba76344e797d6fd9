/*
Copyright the Velero contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package completion

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/walbis/tkkube/pkg/cmd"
)

func NewCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

$ source <(gitops-restore completion bash)

# To load completions for each session, execute once:
$ gitops-restore completion bash > /etc/bash_completion.d/gitops-restore

Zsh:

# If shell completion is not already enabled in your environment you will need
# to enable it.  You can execute the following once:

$ echo "autoload -U compinit; compinit" >> ~/.zshrc

# To load completions for each session, execute once:
$ gitops-restore completion zsh > "${fpath[1]}/_gitops-restore"

Fish:

$ gitops-restore completion fish > ~/.config/fish/completions/gitops-restore.fish
`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		Run: func(c *cobra.Command, args []string) {
			cmd.CheckError(writeCompletion(c.Root(), c.OutOrStdout(), args[0]))
		},
	}

	return c
}

func writeCompletion(root *cobra.Command, out io.Writer, shell string) error {
	switch shell {
	case "bash":
		return root.GenBashCompletion(out)
	case "zsh":
		// cobra's zsh output lacks the compdef header needed when the
		// script is sourced directly
		name := root.Name()
		if _, err := fmt.Fprintf(out, "#compdef %s\ncompdef _%s %s\n", name, name, name); err != nil {
			return err
		}
		return root.GenZshCompletion(out)
	case "fish":
		return root.GenFishCompletion(out, true)
	default:
		return errors.Errorf("invalid shell %q, specify bash, zsh, or fish", shell)
	}
}
