package services

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/errors"
)

// ConfigFileName is the configuration file written by InitProject.
const ConfigFileName = config.FileName + ".yml"

// InitService creates new wiki projects.
type InitService struct{}

// NewInitService creates a new initialization service.
func NewInitService() *InitService {
	return &InitService{}
}

// InitOptions contains options for project initialization.
type InitOptions struct {
	ProjectDir string
	// Minimal skips the sample pages.
	Minimal bool
	// Force overwrites an existing configuration file and sample pages.
	Force bool
}

// InitResult lists what InitProject wrote.
type InitResult struct {
	ConfigPath string
	PagesDir   string
	Created    []string
	Skipped    []string
}

var samplePages = map[string]string{
	"대문": `[목차]
== 환영합니다 ==
'''wikimark'''에 오신 것을 환영합니다.[* 이 문서는 wikimark init 으로 만들어졌습니다.]

== 시작하기 ==
 * [[문법 도움말]]에서 문법을 확인하세요.
 * 문서는 ` + "`pages`" + ` 디렉터리의 .wiki 파일입니다.
 * ` + "`wikimark serve`" + `로 미리보기 서버를 실행합니다.

[[분류:안내]]
`,
	"문법 도움말": `== 글자 모양 ==
'''굵게''', ''기울임'', __밑줄__, ~~취소선~~, ^^위첨자^^, ,,아래첨자,,
{{{#red 빨간 글씨}}} {{{+2 큰 글씨}}}

== 링크와 각주 ==
[[대문]], [[대문|표시 이름]], https://example.com
각주는 이렇게 씁니다.[* 각주 내용]

== 코드 ==
` + "```go" + `
fmt.Println("안녕하세요")
` + "```" + `

== 표 ==
| 이름 | 설명 |
|---|---|
| 가 | 첫째 |
| 나 | 둘째 |

[[분류:안내]]
`,
}

// InitProject writes a configuration file and a pages directory under
// opts.ProjectDir. Existing files are kept unless opts.Force is set.
func (s *InitService) InitProject(opts InitOptions) (*InitResult, error) {
	if opts.ProjectDir == "" {
		opts.ProjectDir = "."
	}
	if err := os.MkdirAll(opts.ProjectDir, 0o755); err != nil {
		return nil, errors.InitError("CREATE_DIR", "cannot create project directory", err).WithLocation(opts.ProjectDir, 0)
	}

	cfg, err := config.LoadFrom(viper.New())
	if err != nil {
		return nil, errors.InitError("DEFAULTS", "default configuration is invalid", err)
	}

	result := &InitResult{
		ConfigPath: filepath.Join(opts.ProjectDir, ConfigFileName),
		PagesDir:   filepath.Join(opts.ProjectDir, cfg.Pages.Dir),
	}
	if err := os.MkdirAll(result.PagesDir, 0o755); err != nil {
		return nil, errors.InitError("CREATE_DIR", "cannot create pages directory", err).WithLocation(result.PagesDir, 0)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.InitError("ENCODE_CONFIG", "cannot encode configuration", err)
	}
	if err := s.writeFile(result, result.ConfigPath, data, opts.Force); err != nil {
		return nil, err
	}

	if opts.Minimal {
		return result, nil
	}
	ext := cfg.Pages.Extensions[0]
	for name, content := range samplePages {
		path := filepath.Join(result.PagesDir, name+ext)
		if err := s.writeFile(result, path, []byte(content), opts.Force); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *InitService) writeFile(result *InitResult, path string, data []byte, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		result.Skipped = append(result.Skipped, path)
		return nil
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return errors.InitError("WRITE_FILE", "cannot write file", err).WithLocation(path, 0)
	}
	result.Created = append(result.Created, path)
	return nil
}
