package crawler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/freellmstxt/llmstxt/pkg/generate"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

const (
	fullFilename     = "llms-full.txt"
	metadataFilename = "crawl_metadata.yaml"
	treeFilename     = "site_tree.txt"
)

// Rendered is the generated text of one crawl
type Rendered struct {
	LLMS        string
	Full        string // Empty unless full content was requested
	ContentHash string // SHA-256 of LLMS without the dated footer
	TokenCount  int    // Tokens in LLMS
}

// Render generates llms.txt (and llms-full.txt when full is set) for result
func Render(result *models.CrawlResult, opts generate.Options, full bool) Rendered {
	r := Rendered{LLMS: generate.Generate(result.RootURL, result.Pages, opts)}
	if full {
		r.Full = generate.FullText(result.RootURL, result.Pages)
	}

	// The footer date changes daily; hash the body only
	hashOpts := opts
	hashOpts.Footer = false
	r.ContentHash = utils.CalculateStringSHA256(generate.Generate(result.RootURL, result.Pages, hashOpts))
	r.TokenCount = generate.TotalTokens(r.LLMS)
	return r
}

// OutputOptions selects which files OutputManager writes
type OutputOptions struct {
	Dir          string
	LLMSFilename string // Defaults to llms.txt
	Full         bool
	Metadata     bool
	Tree         bool
	SiteKey      string
}

// OutputFiles lists the paths written; unset paths were not requested
type OutputFiles struct {
	LLMSPath     string
	FullPath     string
	MetadataPath string
	TreePath     string
}

// OutputManager writes the files of a finished crawl into one directory
type OutputManager struct {
	log  *logrus.Entry
	opts OutputOptions
}

// NewOutputManager creates an OutputManager
func NewOutputManager(log *logrus.Entry, opts OutputOptions) *OutputManager {
	if opts.LLMSFilename == "" {
		opts.LLMSFilename = "llms.txt"
	}
	return &OutputManager{log: log.WithField("output_dir", opts.Dir), opts: opts}
}

// Write stores rendered output and, as configured, the metadata YAML and site tree
func (om *OutputManager) Write(result *models.CrawlResult, rendered Rendered) (*OutputFiles, error) {
	if err := os.MkdirAll(om.opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory '%s': %w", utils.ErrFilesystem, om.opts.Dir, err)
	}

	files := &OutputFiles{LLMSPath: filepath.Join(om.opts.Dir, om.opts.LLMSFilename)}
	if err := om.writeFile(files.LLMSPath, []byte(rendered.LLMS)); err != nil {
		return nil, err
	}

	if om.opts.Full && rendered.Full != "" {
		files.FullPath = filepath.Join(om.opts.Dir, fullFilename)
		if err := om.writeFile(files.FullPath, []byte(rendered.Full)); err != nil {
			return files, err
		}
	}

	if om.opts.Tree {
		tree, err := generate.SiteTree(result.RootURL, result.Pages)
		if err != nil {
			return files, fmt.Errorf("rendering site tree: %w", err)
		}
		files.TreePath = filepath.Join(om.opts.Dir, treeFilename)
		if err := om.writeFile(files.TreePath, []byte(tree)); err != nil {
			return files, err
		}
	}

	if om.opts.Metadata {
		files.MetadataPath = filepath.Join(om.opts.Dir, metadataFilename)
		if err := om.writeMetadataYAML(files.MetadataPath, result, rendered); err != nil {
			return files, err
		}
	}
	return files, nil
}

func (om *OutputManager) writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		om.log.Errorf("Failed to write '%s': %v", path, err)
		return fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, path, err)
	}
	om.log.Infof("Wrote %s (%d bytes)", path, len(data))
	return nil
}

// writeMetadataYAML records how the crawl went next to the generated files
func (om *OutputManager) writeMetadataYAML(path string, result *models.CrawlResult, rendered Rendered) error {
	metadata := models.CrawlMetadata{
		SiteKey:        om.opts.SiteKey,
		RootURL:        result.RootURL,
		DiscoveryMode:  result.Mode.String(),
		CrawlStartTime: result.StartedAt,
		CrawlEndTime:   result.FinishedAt,
		Stats:          result.Stats,
		ContentHash:    rendered.ContentHash,
		TokenCount:     rendered.TokenCount,
		Discovered:     result.Discovered,
		Pages:          result.Pages,
	}

	yamlData, err := yaml.Marshal(&metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal crawl metadata to YAML for '%s': %w", result.RootURL, err)
	}
	return om.writeFile(path, yamlData)
}
