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

package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Describer writes aligned "Key:\tvalue" lines, each starting with Prefix.
type Describer struct {
	Prefix string
	out    *tabwriter.Writer
	buf    *bytes.Buffer
}

// Describe configures a Describer, passing it to fn. The Describer's
// output is returned to the caller.
func Describe(fn func(d *Describer)) string {
	d := Describer{
		out: new(tabwriter.Writer),
		buf: new(bytes.Buffer),
	}
	d.out.Init(d.buf, 0, 8, 2, ' ', 0)

	fn(&d)

	d.out.Flush()
	return d.buf.String()
}

func (d *Describer) Printf(msg string, args ...interface{}) {
	fmt.Fprint(d.out, d.Prefix)
	fmt.Fprintf(d.out, msg, args...)
}

func (d *Describer) Println(args ...interface{}) {
	fmt.Fprint(d.out, d.Prefix)
	fmt.Fprintln(d.out, args...)
}

// DescribeName writes the heading line of an object in bold.
func (d *Describer) DescribeName(key, name string) {
	d.Printf("%s:\t%s\n", key, color.New(color.Bold).SprintFunc()(name))
}

// DescribeMap describes a map of key-value pairs using name as the heading.
func (d *Describer) DescribeMap(name string, m map[string]string) {
	d.Printf("%s:\t", name)

	if len(m) == 0 {
		d.Printf("<none>\n")
		return
	}

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	prefix := ""
	for _, key := range keys {
		d.Printf("%s%s=%s\n", prefix, key, m[key])
		prefix = "\t"
	}
}

// DescribeCounts describes a map of counters, sorted by key.
func (d *Describer) DescribeCounts(name string, m map[string]int) {
	strs := make(map[string]string, len(m))
	for k, v := range m {
		strs[k] = fmt.Sprint(v)
	}
	d.DescribeMap(name, strs)
}

// DescribeSlice describes a slice of strings using name as the heading.
// The heading is indented by indent spaces.
func (d *Describer) DescribeSlice(indent int, name string, s []string) {
	pretab := strings.Repeat(" ", indent)
	d.Printf("%s%s:\t", pretab, name)

	if len(s) == 0 {
		d.Printf("%s<none>\n", pretab)
		return
	}

	prefix := ""
	for _, x := range s {
		d.Printf("%s%s\n", prefix, x)
		prefix = pretab + "\t"
	}
}
