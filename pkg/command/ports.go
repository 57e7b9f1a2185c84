/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fuel-analytics/go-fuel/pkg/log"
)

// ChoosePort picks the device to read from. A single port is taken as is,
// otherwise the ports are listed to out and the choice, a list number or a
// port name, is read from in.
func ChoosePort(ports []string, in io.Reader, out io.Writer) (string, error) {
	switch len(ports) {
	case 0:
		return "", ErrNoPorts{}
	case 1:
		log.Info("Using the only available serial port: %s", ports[0])
		return ports[0], nil
	}

	fmt.Fprintln(out, "Available ports:")
	for i, port := range ports {
		fmt.Fprintf(out, "%d: %s\n", i+1, port)
	}
	fmt.Fprint(out, "Choose port: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrBadChoice{}
	}
	choice := strings.TrimSpace(scanner.Text())
	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(ports) {
			return "", ErrBadChoice{Choice: choice}
		}
		return ports[n-1], nil
	}
	for _, port := range ports {
		if port == choice {
			return port, nil
		}
	}
	return "", ErrBadChoice{Choice: choice}
}
