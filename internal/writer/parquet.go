// Parquet encoding/decoding for joined partitions. The column layout is the
// stable query interface described by the catalog entry; names and types here
// change only with a catalog compatibility check.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/compress"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"

	"trendmart/internal/schema"
)

// tsType is the canonical physical timestamp type: millisecond UTC.
var tsType = &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}

// ArrowSchema is the Arrow rendition of the joined-record contract. Kept
// explicit and bounded rather than derived by reflection so a schema change
// is a visible, reviewable diff.
func ArrowSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "video_id", Type: arrow.BinaryTypes.String},
		{Name: "region", Type: arrow.BinaryTypes.String},
		{Name: "category_id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "title", Type: arrow.BinaryTypes.String},
		{Name: "description", Type: arrow.BinaryTypes.String},
		{Name: "tags", Type: arrow.BinaryTypes.String},
		{Name: "views", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "likes", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "comments", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "published_at", Type: tsType},
		{Name: "category_label", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

// writerProps pin every knob that could vary between runs so an unchanged
// input produces byte-identical output.
func writerProps() *parquet.WriterProperties {
	return parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithDictionaryDefault(false),
		parquet.WithCreatedBy("trendmart"),
	)
}

// EncodePartition serializes one partition's records to Parquet bytes.
// Row order is preserved from the input.
func EncodePartition(recs []schema.JoinedRecord) ([]byte, error) {
	mem := memory.NewGoAllocator()
	sc := ArrowSchema()

	b := array.NewRecordBuilder(mem, sc)
	defer b.Release()

	for _, r := range recs {
		b.Field(0).(*array.StringBuilder).Append(r.VideoID)
		b.Field(1).(*array.StringBuilder).Append(r.Region)
		appendOptInt(b.Field(2).(*array.Int64Builder), r.CategoryID)
		b.Field(3).(*array.StringBuilder).Append(r.Title)
		b.Field(4).(*array.StringBuilder).Append(r.Description)
		b.Field(5).(*array.StringBuilder).Append(r.Tags)
		appendOptInt(b.Field(6).(*array.Int64Builder), r.Views)
		appendOptInt(b.Field(7).(*array.Int64Builder), r.Likes)
		appendOptInt(b.Field(8).(*array.Int64Builder), r.Comments)
		b.Field(9).(*array.TimestampBuilder).Append(arrow.Timestamp(r.PublishedAt.UTC().UnixMilli()))
		appendOptString(b.Field(10).(*array.StringBuilder), r.CategoryLabel)
	}

	rec := b.NewRecord()
	defer rec.Release()
	table := array.NewTableFromRecords(sc, []arrow.Record{rec})
	defer table.Release()

	var buf bytes.Buffer
	if err := pqarrow.WriteTable(table, &buf, int64(len(recs))+1, writerProps(), pqarrow.DefaultWriterProps()); err != nil {
		return nil, fmt.Errorf("writer: encode parquet: %w", err)
	}
	return buf.Bytes(), nil
}

func appendOptInt(b *array.Int64Builder, v *int64) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func appendOptString(b *array.StringBuilder, v *string) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

// DecodePartition reads Parquet bytes back into joined records. Used by the
// round-trip tests and the partition probe tooling.
func DecodePartition(ctx context.Context, data []byte) ([]schema.JoinedRecord, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("writer: open parquet: %w", err)
	}
	defer pf.Close()

	mem := memory.NewGoAllocator()
	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("writer: arrow reader: %w", err)
	}
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("writer: read table: %w", err)
	}
	defer table.Release()

	cols := make(map[string]*arrow.Column, int(table.NumCols()))
	for i := 0; i < int(table.NumCols()); i++ {
		col := table.Column(i)
		cols[col.Name()] = col
	}
	for _, f := range ArrowSchema().Fields() {
		if _, ok := cols[f.Name]; !ok {
			return nil, fmt.Errorf("writer: partition missing column %q", f.Name)
		}
	}

	out := make([]schema.JoinedRecord, table.NumRows())
	fillString(cols["video_id"], func(i int, v string) { out[i].VideoID = v })
	fillString(cols["region"], func(i int, v string) { out[i].Region = v })
	fillOptInt(cols["category_id"], func(i int, v *int64) { out[i].CategoryID = v })
	fillString(cols["title"], func(i int, v string) { out[i].Title = v })
	fillString(cols["description"], func(i int, v string) { out[i].Description = v })
	fillString(cols["tags"], func(i int, v string) { out[i].Tags = v })
	fillOptInt(cols["views"], func(i int, v *int64) { out[i].Views = v })
	fillOptInt(cols["likes"], func(i int, v *int64) { out[i].Likes = v })
	fillOptInt(cols["comments"], func(i int, v *int64) { out[i].Comments = v })
	fillTime(cols["published_at"], func(i int, v time.Time) { out[i].PublishedAt = v })
	fillOptString(cols["category_label"], func(i int, v *string) { out[i].CategoryLabel = v })

	return out, nil
}

// The fill helpers walk a (possibly chunked) column and hand each value to
// set with its global row index.

func fillString(col *arrow.Column, set func(i int, v string)) {
	i := 0
	for _, chunk := range col.Data().Chunks() {
		arr := chunk.(*array.String)
		for j := 0; j < arr.Len(); j++ {
			set(i, arr.Value(j))
			i++
		}
	}
}

func fillOptString(col *arrow.Column, set func(i int, v *string)) {
	i := 0
	for _, chunk := range col.Data().Chunks() {
		arr := chunk.(*array.String)
		for j := 0; j < arr.Len(); j++ {
			if arr.IsNull(j) {
				set(i, nil)
			} else {
				v := arr.Value(j)
				set(i, &v)
			}
			i++
		}
	}
}

func fillOptInt(col *arrow.Column, set func(i int, v *int64)) {
	i := 0
	for _, chunk := range col.Data().Chunks() {
		arr := chunk.(*array.Int64)
		for j := 0; j < arr.Len(); j++ {
			if arr.IsNull(j) {
				set(i, nil)
			} else {
				v := arr.Value(j)
				set(i, &v)
			}
			i++
		}
	}
}

func fillTime(col *arrow.Column, set func(i int, v time.Time)) {
	i := 0
	for _, chunk := range col.Data().Chunks() {
		arr := chunk.(*array.Timestamp)
		for j := 0; j < arr.Len(); j++ {
			set(i, time.UnixMilli(int64(arr.Value(j))).UTC())
			i++
		}
	}
}
