// Copyright 2025 Probeworks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/probeworks/threadscout/core"
)

// Serializers are written by hand against the mus-go primitives. Times
// are encoded as Unix microseconds; the zero time maps to a sentinel so
// it round-trips exactly.

const zeroTimeSentinel = math.MinInt64

func sizeTime(t time.Time) int {
	return varint.Int64.Size(timeToMicro(t))
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeToMicro(t), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if micro == zeroTimeSentinel {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return zeroTimeSentinel
	}
	return t.UnixMicro()
}

func sizeVector(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, fmt.Errorf("%w: negative vector length %d", ErrSerializationFailed, length)
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float32, length)
	for i := range v {
		f, m, err := raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = f
	}
	return v, n, nil
}

// MarshalID serializes an internal ID to bytes.
func MarshalID(id core.ID) []byte {
	bs := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), bs)
	return bs
}

// UnmarshalID deserializes an internal ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	return core.ID(id), err
}

// MarshalPost serializes a Post to bytes.
func MarshalPost(post *core.Post) []byte {
	size := ord.String.Size(post.ID) +
		ord.String.Size(post.Channel) +
		ord.String.Size(post.Title) +
		ord.String.Size(post.Body) +
		ord.String.Size(post.URL) +
		varint.Int.Size(post.Score) +
		sizeTime(post.CreatedAt) +
		sizeVector(post.Vector) +
		ord.String.Size(post.Analysis) +
		sizeTime(post.InsertedAt) +
		sizeTime(post.UpdatedAt)

	bs := make([]byte, size)
	n := ord.String.Marshal(post.ID, bs)
	n += ord.String.Marshal(post.Channel, bs[n:])
	n += ord.String.Marshal(post.Title, bs[n:])
	n += ord.String.Marshal(post.Body, bs[n:])
	n += ord.String.Marshal(post.URL, bs[n:])
	n += varint.Int.Marshal(post.Score, bs[n:])
	n += marshalTime(post.CreatedAt, bs[n:])
	n += marshalVector(post.Vector, bs[n:])
	n += ord.String.Marshal(post.Analysis, bs[n:])
	n += marshalTime(post.InsertedAt, bs[n:])
	marshalTime(post.UpdatedAt, bs[n:])
	return bs
}

// UnmarshalPost deserializes a Post from bytes.
func UnmarshalPost(data []byte) (*core.Post, error) {
	var (
		post core.Post
		n    int
		err  error
	)

	fields := []func(bs []byte) (int, error){
		func(bs []byte) (m int, err error) { post.ID, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { post.Channel, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { post.Title, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { post.Body, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { post.URL, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { post.Score, m, err = varint.Int.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { post.CreatedAt, m, err = unmarshalTime(bs); return },
		func(bs []byte) (m int, err error) { post.Vector, m, err = unmarshalVector(bs); return },
		func(bs []byte) (m int, err error) { post.Analysis, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { post.InsertedAt, m, err = unmarshalTime(bs); return },
		func(bs []byte) (m int, err error) { post.UpdatedAt, m, err = unmarshalTime(bs); return },
	}

	for _, field := range fields {
		var m int
		m, err = field(data[n:])
		n += m
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
	}
	return &post, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	size := ord.String.Size(checkpoint.Channel) +
		ord.String.Size(checkpoint.Timeframe) +
		ord.String.Size(checkpoint.LastSearchTime) +
		ord.String.Size(checkpoint.LastPostTime) +
		sizeTime(checkpoint.UpdatedAt)

	bs := make([]byte, size)
	n := ord.String.Marshal(checkpoint.Channel, bs)
	n += ord.String.Marshal(checkpoint.Timeframe, bs[n:])
	n += ord.String.Marshal(checkpoint.LastSearchTime, bs[n:])
	n += ord.String.Marshal(checkpoint.LastPostTime, bs[n:])
	marshalTime(checkpoint.UpdatedAt, bs[n:])
	return bs
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	var (
		cp  core.Checkpoint
		n   int
		err error
	)

	fields := []func(bs []byte) (int, error){
		func(bs []byte) (m int, err error) { cp.Channel, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { cp.Timeframe, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { cp.LastSearchTime, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { cp.LastPostTime, m, err = ord.String.Unmarshal(bs); return },
		func(bs []byte) (m int, err error) { cp.UpdatedAt, m, err = unmarshalTime(bs); return },
	}

	for _, field := range fields {
		var m int
		m, err = field(data[n:])
		n += m
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
	}
	return &cp, nil
}
