package runner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/withObsrvr/rxnspace/internal/catalog"
	"github.com/withObsrvr/rxnspace/internal/component"
	"github.com/withObsrvr/rxnspace/internal/config"
	"github.com/withObsrvr/rxnspace/internal/provenance"
	"github.com/withObsrvr/rxnspace/internal/space"
	"github.com/withObsrvr/rxnspace/internal/storage"
	"github.com/withObsrvr/rxnspace/internal/tables"
)

// inputHash fingerprints everything that determines the published output: the
// component contents and declarations, the build and encoding settings and
// the location the output is written to.
func inputHash(cfg config.Config, loaded []LoadedComponent) string {
	parts := []string{
		"backend=" + cfg.Storage.Backend,
		"storage_dir=" + cfg.Storage.Dir,
		"bucket=" + cfg.Storage.Bucket,
		"endpoint=" + cfg.Storage.Endpoint,
		"output=" + outputRef(cfg).Path(cfg.Storage.Prefix),
		"separator=" + cfg.Space.Separator,
		"allow_separator=" + strconv.FormatBool(cfg.Space.AllowSeparator),
		"format=" + cfg.Output.Format,
		"compression=" + cfg.Output.Compression,
		"index_label=" + cfg.Output.IndexLabel,
		"schema_version=" + tables.SchemaVersion,
	}
	for i, lc := range loaded {
		cc := cfg.Space.Components[i]
		parts = append(parts, fmt.Sprintf("component=%d|%s|%s|%s|%s",
			i+1, cc.Path, cc.IDColumn, strings.Join(cc.FeatureColumns, ","), lc.Checksum))
	}
	return tables.Fingerprint(parts...)
}

// outputConfig maps the configuration onto the encoder options.
func outputConfig(cfg config.Config) tables.OutputConfig {
	return tables.OutputConfig{
		Format:      tables.Format(cfg.Output.Format),
		Filename:    cfg.Output.Filename,
		Compression: cfg.Output.Compression,
		IndexLabel:  cfg.Output.IndexLabel,
		Separator:   cfg.Space.Separator,
	}
}

// outputRef returns the storage location of the encoded file. Compression
// may extend the configured filename.
func outputRef(cfg config.Config) storage.OutputRef {
	filename := cfg.Output.Filename
	if cfg.Output.Format == string(tables.FormatCSV) && cfg.Output.Compression == "zstd" && !strings.HasSuffix(filename, ".zst") {
		filename += ".zst"
	}
	return storage.OutputRef{
		Dataset:  cfg.Space.Dataset,
		Filename: filename,
	}
}

// newBuilder creates the space builder from configuration.
func newBuilder(cfg config.SpaceConfig) *space.Builder {
	return space.NewBuilder(
		space.WithSeparator(cfg.Separator),
		space.WithIdentifierCheck(!cfg.AllowSeparator),
		space.WithWorkers(cfg.Workers),
		space.WithMaxEntries(cfg.MaxEntries),
	)
}

func componentTables(loaded []LoadedComponent) []*component.Table {
	out := make([]*component.Table, len(loaded))
	for i, lc := range loaded {
		out[i] = lc.Table
	}
	return out
}

// buildManifest creates the manifest published next to the output.
func buildManifest(cfg config.Config, buildID, inputHash string, loaded []LoadedComponent, out *tables.Output) *storage.Manifest {
	comps := make([]storage.ComponentInfo, len(loaded))
	for i, lc := range loaded {
		comps[i] = storage.ComponentInfo{
			Index:    lc.Table.Index,
			Name:     lc.Table.Name,
			Source:   lc.Source,
			Checksum: lc.Checksum,
			Records:  lc.Table.Len(),
			Width:    lc.Table.Width(),
		}
	}

	return &storage.Manifest{
		Dataset: cfg.Space.Dataset,
		Output: storage.OutputInfo{
			File:     out.Filename,
			Format:   string(out.Format),
			Checksum: out.Checksum,
			RowCount: out.RowCount,
			ByteSize: out.ByteSize,
			Columns:  out.Columns,
		},
		Components: comps,
		Separator:  cfg.Space.Separator,
		Producer: storage.ProducerInfo{
			Name:    producerName,
			Version: Version,
			GitSHA:  GitSHA,
		},
		BuildID:   buildID,
		CreatedAt: time.Now().UTC(),
		InputHash: inputHash,
	}
}

// buildRecord creates the catalog lineage record of a published build.
func buildRecord(r *Runner, res *Result, prevChecksum string) catalog.BuildRecord {
	comps := make([]catalog.ComponentRecord, len(res.Components))
	for i, lc := range res.Components {
		comps[i] = catalog.ComponentRecord{
			Index:    lc.Table.Index,
			Name:     lc.Table.Name,
			Checksum: lc.Checksum,
			Records:  lc.Table.Len(),
			Width:    lc.Table.Width(),
		}
	}

	return catalog.BuildRecord{
		DatasetID:       r.datasetID,
		BuildID:         res.BuildID,
		InputHash:       res.InputHash,
		Components:      comps,
		RowCount:        res.Output.RowCount,
		ByteSize:        res.Output.ByteSize,
		Checksum:        res.Output.Checksum,
		PrevChecksum:    prevChecksum,
		StoragePath:     res.Publish.OutputKey,
		StorageURI:      res.Publish.OutputURI,
		ProducerVersion: fmt.Sprintf("%s@%s", producerName, Version),
		ProducerGitSHA:  GitSHA,
		SourceType:      r.cfg.Source.Type,
		SourceLocation:  r.src.Location(),
		CreatedAt:       time.Now().UTC(),
	}
}

// provenanceEvent creates the audit event of a published build.
func provenanceEvent(cfg config.Config, res *Result) *provenance.Event {
	comps := make([]provenance.ComponentInfo, len(res.Components))
	for i, lc := range res.Components {
		comps[i] = provenance.ComponentInfo{
			Index:    lc.Table.Index,
			Name:     lc.Table.Name,
			Checksum: lc.Checksum,
			Records:  lc.Table.Len(),
		}
	}

	return &provenance.Event{
		Space: provenance.SpaceInfo{
			Dataset:   cfg.Space.Dataset,
			BuildID:   res.BuildID,
			InputHash: res.InputHash,
			Separator: cfg.Space.Separator,
		},
		Output: provenance.OutputInfo{
			Format:      string(res.Output.Format),
			Checksum:    res.Output.Checksum,
			RowCount:    res.Output.RowCount,
			Width:       res.Schema.Width(),
			StoragePath: res.Publish.OutputKey,
			ByteSize:    res.Output.ByteSize,
		},
		Components: comps,
		Producer: provenance.ProducerInfo{
			Name:    producerName,
			Version: Version,
			GitSHA:  GitSHA,
		},
	}
}
