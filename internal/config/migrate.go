package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Migrate brings the config file at path in line with the embedded
// template: if the file is missing it is created verbatim from the
// template; if it exists but its inner.version trails the template's, a
// ".backup" copy is made and a merged file is written that keeps every
// user-customized value (any key whose on-disk value differs from the
// embedded template's value for that key) while adopting new template
// keys, comments, and key order. Earlier template versions are not kept,
// so an on-disk value equal to an old default that the template has since
// changed also counts as customized and is kept. A file already at or above the template's version is
// left untouched.
func Migrate(path string) (migrated bool, err error) {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return false, WriteDefault(path)
	} else if statErr != nil {
		return false, fmt.Errorf("config: stat %s: %w", path, statErr)
	}

	existingRaw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("config: read %s: %w", path, err)
	}

	templateData, err := decodeTable(templateTOML)
	if err != nil {
		return false, fmt.Errorf("config: parse embedded template: %w", err)
	}
	existingData, err := decodeTable(string(existingRaw))
	if err != nil {
		return false, fmt.Errorf("config: parse %s: %w", path, err)
	}

	templateVersion, _ := tableString(templateData, "inner", "version")
	configVersion, _ := tableString(existingData, "inner", "version")
	if configVersion == "" || !templateIsNewer(templateVersion, configVersion) {
		return false, nil
	}

	backupPath := path + ".backup"
	if err := os.WriteFile(backupPath, existingRaw, 0o644); err != nil {
		return false, fmt.Errorf("config: write backup %s: %w", backupPath, err)
	}

	merged := mergeTables(templateData, existingData)
	content := renderWithComments(merged, templateTOML)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("config: write migrated %s: %w", path, err)
	}
	return true, nil
}

func decodeTable(src string) (map[string]any, error) {
	var data map[string]any
	if _, err := toml.Decode(src, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func tableString(data map[string]any, section, key string) (string, bool) {
	sub, ok := data[section].(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := sub[key].(string)
	return v, ok
}

// templateIsNewer compares dotted version strings numerically,
// component by component; a malformed version on either side is treated
// as "needs migration" (mirroring the original's fail-open behavior).
func templateIsNewer(templateVersion, configVersion string) bool {
	t, errT := parseVersion(templateVersion)
	c, errC := parseVersion(configVersion)
	if errT != nil || errC != nil {
		return true
	}
	for i := 0; i < len(t) || i < len(c); i++ {
		var tv, cv int
		if i < len(t) {
			tv = t[i]
		}
		if i < len(c) {
			cv = c[i]
		}
		if tv != cv {
			return tv > cv
		}
	}
	return false
}

func parseVersion(v string) ([]int, error) {
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("config: malformed version segment %q: %w", p, err)
		}
		out[i] = n
	}
	return out, nil
}

// mergeTables walks the template section-by-section and key-by-key: a
// user value survives only if it differs from the template's default
// (their customization), excluding the placeholder api_key and the
// version key itself, which always tracks the template.
func mergeTables(template, existing map[string]any) map[string]any {
	merged := make(map[string]any, len(template))
	for section, rawValues := range template {
		values, ok := rawValues.(map[string]any)
		if !ok {
			merged[section] = rawValues
			continue
		}
		mergedSection := make(map[string]any, len(values))
		existingSection, _ := existing[section].(map[string]any)
		for key, templateValue := range values {
			if section == "inner" && key == "version" {
				mergedSection[key] = templateValue
				continue
			}
			userValue, present := existingSection[key]
			if present && !valuesEqual(userValue, templateValue) && !isPlaceholderAPIKey(key, userValue) {
				mergedSection[key] = userValue
				continue
			}
			mergedSection[key] = templateValue
		}
		merged[section] = mergedSection
	}
	return merged
}

func isPlaceholderAPIKey(key string, value any) bool {
	s, ok := value.(string)
	return ok && key == "api_key" && s == "your-api-key"
}

func valuesEqual(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// renderWithComments re-serializes merged as TOML, reusing the template
// text's section/key comment lines where present, preserving the
// template's section and key order.
func renderWithComments(merged map[string]any, templateContent string) string {
	var b strings.Builder
	b.WriteString("# agent configuration\n\n")

	for _, section := range sectionOrder(templateContent) {
		values, ok := merged[section].(map[string]any)
		if !ok {
			continue
		}
		if c := extractSectionComment(templateContent, section); c != "" {
			b.WriteString(c)
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s]\n", section)
		for _, key := range keyOrder(templateContent, section) {
			value, ok := values[key]
			if !ok {
				continue
			}
			if c := extractKeyComment(templateContent, section, key); c != "" {
				b.WriteString(c)
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s = %s\n", key, formatTOMLValue(value))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatTOMLValue(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case nil:
		return `""`
	default:
		return fmt.Sprintf("%q", fmt.Sprintf("%v", v))
	}
}

func sectionOrder(content string) []string {
	var order []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			order = append(order, line[1:len(line)-1])
		}
	}
	return order
}

func keyOrder(content, section string) []string {
	var order []string
	inSection := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "["+section+"]" {
			inSection = true
			continue
		}
		if inSection && strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			break
		}
		if inSection {
			if i := strings.Index(trimmed, " = "); i > 0 && !strings.HasPrefix(trimmed, "#") {
				order = append(order, trimmed[:i])
			}
		}
	}
	return order
}

// extractSectionComment returns the contiguous run of "#" comment lines
// preceding a [section] header (blank lines between the run and the
// header are skipped), or "" if there is none.
func extractSectionComment(content, section string) string {
	lines := strings.Split(content, "\n")
	header := "[" + section + "]"
	for i, line := range lines {
		if strings.TrimSpace(line) != header {
			continue
		}
		return commentAbove(lines, i)
	}
	return ""
}

// extractKeyComment returns the contiguous run of "#" comment lines
// preceding section.key's assignment line, or "" if there is none.
func extractKeyComment(content, section, key string) string {
	lines := strings.Split(content, "\n")
	inSection := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "["+section+"]" {
			inSection = true
			continue
		}
		if inSection && strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			return ""
		}
		if inSection && strings.HasPrefix(trimmed, key+" = ") {
			return commentAbove(lines, i)
		}
	}
	return ""
}

func commentAbove(lines []string, idx int) string {
	var block []string
	for j := idx - 1; j >= 0; j-- {
		line := strings.TrimSpace(lines[j])
		switch {
		case strings.HasPrefix(line, "#"):
			block = append([]string{line}, block...)
		case line == "" && len(block) == 0:
			continue
		default:
			return strings.Join(block, "\n")
		}
	}
	return strings.Join(block, "\n")
}
