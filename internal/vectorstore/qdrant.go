package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
)

// QdrantStore is the sole owner of all Qdrant operations.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   int
}

func NewQdrantStore(addr, collection string, dimension int) (*QdrantStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}
	return &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimension:   dimension,
	}, nil
}

func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

func (s *QdrantStore) EnsureReady(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return storeErr("list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return storeErr("create collection "+s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, doc Document) error {
	id, err := pointID(doc.ID)
	if err != nil {
		return err
	}
	payload := make(map[string]*pb.Value, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	payload["content"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: doc.Text}}

	wait := true
	_, err = s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: id,
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: doc.Embedding},
				},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		return storeErr("upsert "+doc.ID, err)
	}
	return nil
}

func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	pid, err := pointID(id)
	if err != nil {
		return err
	}
	wait := true
	_, err = s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{pid}},
			},
		},
	})
	if err != nil {
		return storeErr("delete "+id, err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]model.TicketMatch, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filter) > 0 {
		must := make([]*pb.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, fieldMatch(k, v))
		}
		req.Filter = &pb.Filter{Must: must}
	}
	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, storeErr("search", err)
	}
	matches := make([]model.TicketMatch, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		m := model.TicketMatch{
			TicketID: strconv.FormatUint(r.GetId().GetNum(), 10),
			Score:    r.GetScore(),
			Metadata: make(map[string]string),
		}
		for k, v := range r.GetPayload() {
			if k == "content" {
				continue
			}
			m.Metadata[k] = v.GetStringValue()
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, storeErr("count", err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

func (s *QdrantStore) Clear(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: s.collection,
	})
	if err != nil {
		return storeErr("delete collection "+s.collection, err)
	}
	return s.EnsureReady(ctx)
}

func pointID(id string) (*pb.PointId, error) {
	num, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("qdrant point id must be numeric, got %q: %w", id, err)
	}
	return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: num}}, nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: qdrant %s: %v", apperr.ErrStoreUnavailable, op, err)
}
