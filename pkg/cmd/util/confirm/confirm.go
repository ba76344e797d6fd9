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

package confirm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// ConfirmOptions skip the interactive prompt when --confirm is set.
type ConfirmOptions struct {
	Confirm         bool
	flagDescription string
}

func NewConfirmOptions() *ConfirmOptions {
	return &ConfirmOptions{flagDescription: "Confirm action"}
}

func NewConfirmOptionsWithDescription(desc string) *ConfirmOptions {
	return &ConfirmOptions{flagDescription: desc}
}

// Bind confirm flags.
func (o *ConfirmOptions) BindFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&o.Confirm, "confirm", o.Confirm, o.flagDescription)
}

// Confirmed returns true when --confirm was given, otherwise it asks.
func (o *ConfirmOptions) Confirmed(in io.Reader, out io.Writer, prompts ...string) bool {
	if o.Confirm {
		return true
	}
	return GetConfirmation(in, out, prompts...)
}

// GetConfirmation prints prompts to out and reads answers from in until it
// gets y or n. A read error counts as n.
func GetConfirmation(in io.Reader, out io.Writer, prompts ...string) bool {
	reader := bufio.NewReader(in)

	for {
		for i := range prompts {
			fmt.Fprintln(out, prompts[i])
		}
		fmt.Fprint(out, "Are you sure you want to continue (Y/N)? ")

		confirmation, err := reader.ReadString('\n')
		confirmation = strings.TrimSpace(confirmation)
		switch strings.ToLower(confirmation) {
		case "y":
			return true
		case "n":
			return false
		}

		if err != nil {
			fmt.Fprintf(out, "\nerror reading user input: %v\n", err)
			return false
		}
	}
}
